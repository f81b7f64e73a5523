package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/urfave/cli"

	"github.com/kryptco/wlserver/wlscanner"
)

func generateCommand(c *cli.Context) error {
	xmlPath := c.String("xml")
	outPath := c.String("out")
	pkg := c.String("package")
	if xmlPath == "" || outPath == "" {
		return cli.NewExitError("--xml and --out are required", 1)
	}
	if pkg == "" {
		pkg = "protocol"
	}

	f, err := os.Open(xmlPath)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer f.Close()

	proto, err := wlscanner.Parse(f)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	src, err := wlscanner.Generate(proto, pkg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if err := ioutil.WriteFile(outPath, src, 0644); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%s)\n", outPath, proto.Name)
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "wlscanner"
	app.Usage = "generate Go protocol bindings from Wayland protocol XML"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		{
			Name:  "generate",
			Usage: "generate <interface set>.go from a protocol XML file",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "xml", Usage: "path to the protocol XML file"},
				cli.StringFlag{Name: "out", Usage: "output .go file path"},
				cli.StringFlag{Name: "package", Usage: "package name for the generated file (default \"protocol\")"},
			},
			Action: generateCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
