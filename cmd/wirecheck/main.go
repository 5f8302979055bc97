package main

import (
	stderrors "errors"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/config"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/wire"
	"github.com/wippyai/fidlwire/witschema"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `short:"c" help:"YAML configuration file" type:"existingfile"`
	Schema string `short:"s" help:"WIT resolve in JSON form (wasm-tools component wit --json)" type:"existingfile"`
	Type   string `short:"t" help:"Coding table name, overrides the type recorded in the capture"`

	cfg    *config.Config
	logger *zap.Logger
	reg    *coding.Registry
}

type CLI struct {
	Globals

	Validate ValidateCmd `cmd:"" help:"Validate a captured message without modifying it."`
	Decode   DecodeCmd   `cmd:"" help:"Decode a captured message in place."`
	Inspect  InspectCmd  `cmd:"" help:"Trace every walker step over a captured message."`
	Record   RecordCmd   `cmd:"" help:"Write a capture from raw message bytes."`
	Types    TypesCmd    `cmd:"" help:"List the message types in the schema."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("wirecheck"),
		kong.Description("Validate, decode and inspect captured wire-format messages."),
		kong.UsageOnError(),
	)

	if err := cli.Globals.setup(); err != nil {
		ctx.FatalIfErrorf(err)
	}
	defer func() { _ = cli.logger.Sync() }()

	err := ctx.Run(&cli.Globals)
	var rep reported
	if stderrors.As(err, &rep) {
		os.Exit(1)
	}
	ctx.FatalIfErrorf(err)
}

func (g *Globals) setup() error {
	g.cfg = config.Default()
	if g.Config != "" {
		cfg, err := config.Load(g.Config)
		if err != nil {
			return err
		}
		g.cfg = cfg
	}

	logger, err := g.cfg.NewLogger()
	if err != nil {
		return err
	}
	g.logger = logger
	wire.SetLogger(logger.Named("wire"))

	g.reg = coding.NewRegistry()
	if g.Schema == "" {
		return nil
	}
	res, err := witschema.LoadJSON(g.Schema)
	if err != nil {
		return err
	}
	n, err := witschema.NewCompiler(g.cfg.SchemaOptions()).Register(g.reg, res)
	if err != nil {
		return err
	}
	logger.Debug("schema loaded", zap.String("path", g.Schema), zap.Int("types", n))
	return nil
}

// lookup resolves the coding table for a capture.
func (g *Globals) lookup(recorded string) (string, coding.Type, error) {
	name := recorded
	if g.Type != "" {
		name = g.Type
	}
	if name == "" {
		return "", nil, errors.InvalidInput(errors.PhaseSchema, "no type recorded in capture; pass --type")
	}
	t, err := g.reg.Lookup(name)
	if err != nil {
		return "", nil, err
	}
	return name, t, nil
}
