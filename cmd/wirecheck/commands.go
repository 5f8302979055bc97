package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/fidlwire/capture"
	"github.com/wippyai/fidlwire/coding"
	"github.com/wippyai/fidlwire/errors"
	"github.com/wippyai/fidlwire/guestmem"
	"github.com/wippyai/fidlwire/handle"
	"github.com/wippyai/fidlwire/wire"
)

type ValidateCmd struct {
	Guest   bool   `help:"Stage the message in wasm guest memory and validate it there."`
	Capture string `arg:"" help:"Capture file." type:"existingfile"`
}

func (c *ValidateCmd) Run(g *Globals) error {
	m, err := capture.Load(c.Capture)
	if err != nil {
		return report(os.Stderr, c.Capture, nil, "", err)
	}
	name, t, err := g.lookup(m.Type)
	if err != nil {
		return report(os.Stderr, c.Capture, m, name, err)
	}

	dec := wire.NewDecoderWithConfig(g.cfg.DecoderConfig(nil))
	numHandles := uint32(len(m.Handles))

	if c.Guest {
		err = validateInGuest(dec, m, t, numHandles)
	} else {
		err = dec.Validate(t, alignedCopy(m.Bytes), numHandles)
	}
	return report(os.Stdout, c.Capture, m, name, err)
}

func validateInGuest(dec *wire.Decoder, m *capture.Message, t coding.Type, numHandles uint32) error {
	ctx := context.Background()
	sb, err := guestmem.NewSandbox(ctx)
	if err != nil {
		return err
	}
	defer sb.Close(ctx)

	ptr, err := sb.Stage(m.Bytes)
	if err != nil {
		return err
	}
	return guestmem.New(sb.Memory(), dec).Validate(t, ptr, uint32(len(m.Bytes)), numHandles)
}

type DecodeCmd struct {
	Capture string `arg:"" help:"Capture file." type:"existingfile"`
}

func (c *DecodeCmd) Run(g *Globals) error {
	m, err := capture.Load(c.Capture)
	if err != nil {
		return report(os.Stderr, c.Capture, nil, "", err)
	}
	name, t, err := g.lookup(m.Type)
	if err != nil {
		return report(os.Stderr, c.Capture, m, name, err)
	}

	table := handle.NewLocalTable()
	table.Subscribe(handleLogger{g.logger})
	defer table.CloseAll()

	msg, err := m.Incoming(table)
	if err != nil {
		return report(os.Stderr, c.Capture, m, name, err)
	}
	dec := wire.NewDecoderWithConfig(g.cfg.DecoderConfig(table))
	err = dec.DecodeMessage(t, msg)
	if err == nil {
		g.logger.Info("decoded",
			zap.String("type", name),
			zap.Int("handles_live", table.Len()),
		)
	}
	return report(os.Stdout, c.Capture, m, name, err)
}

// handleLogger logs handle table events at debug.
type handleLogger struct {
	logger *zap.Logger
}

func (l handleLogger) OnHandleEvent(e handle.Event) {
	l.logger.Debug("handle event",
		zap.Uint32("handle", uint32(e.Handle)),
		zap.Uint8("event", uint8(e.Type)),
		zap.Stringer("type", e.ObjType),
	)
}

type InspectCmd struct {
	Interactive bool   `short:"i" help:"Browse the trace in a terminal UI."`
	Capture     string `arg:"" help:"Capture file." type:"existingfile"`
}

func (c *InspectCmd) Run(g *Globals) error {
	m, err := capture.Load(c.Capture)
	if err != nil {
		return report(os.Stderr, c.Capture, nil, "", err)
	}
	name, t, err := g.lookup(m.Type)
	if err != nil {
		return report(os.Stderr, c.Capture, m, name, err)
	}

	dec := wire.NewDecoderWithConfig(g.cfg.DecoderConfig(nil))
	trace := dec.Inspect(t, alignedCopy(m.Bytes), uint32(len(m.Handles)))

	if c.Interactive && isTerminal(os.Stdout) {
		return browse(c.Capture, name, trace)
	}
	printTrace(os.Stdout, trace)
	return report(os.Stdout, c.Capture, m, name, trace.Err)
}

type RecordCmd struct {
	Hex         string   `help:"Message bytes as hex instead of reading a file."`
	Handle      []string `help:"Handle carried by the message as type[:rights], in order (repeatable)."`
	Compression string   `help:"none, zstd or lz4. Defaults to the configured compression."`
	Input       string   `arg:"" optional:"" help:"File with the raw message bytes." type:"existingfile"`
	Output      string   `short:"o" required:"" help:"Capture file to write."`
}

func (c *RecordCmd) Run(g *Globals) error {
	var (
		data []byte
		err  error
	)
	switch {
	case c.Hex != "":
		data, err = hex.DecodeString(strings.Join(strings.Fields(c.Hex), ""))
	case c.Input != "":
		data, err = os.ReadFile(c.Input)
	default:
		err = errors.InvalidInput(errors.PhaseCapture, "pass a file or --hex")
	}
	if err != nil {
		return fmt.Errorf("read message: %w", err)
	}

	m := &capture.Message{Type: g.Type, Bytes: data}
	for _, arg := range c.Handle {
		rec, err := parseHandle(arg)
		if err != nil {
			return err
		}
		m.Handles = append(m.Handles, rec)
	}

	comp := g.cfg.Compression()
	if c.Compression != "" {
		if comp, err = capture.ParseCompression(c.Compression); err != nil {
			return err
		}
	}
	if err := capture.Save(c.Output, m, comp); err != nil {
		return err
	}

	digest, err := m.Digest()
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (%d bytes, %d handles, %s)\n", digest.Short(), c.Output, len(data), len(m.Handles), comp)
	return nil
}

// parseHandle parses "channel" or "channel:0x1c00f". Without explicit rights
// the object type's default rights set is recorded.
func parseHandle(arg string) (capture.HandleRecord, error) {
	typeName, rightsStr, hasRights := strings.Cut(arg, ":")
	typ, ok := handle.ParseObjType(typeName)
	if !ok {
		return capture.HandleRecord{}, errors.InvalidInput(errors.PhaseCapture, fmt.Sprintf("unknown object type %q", typeName))
	}
	rights := typ.DefaultRights()
	if hasRights {
		v, err := strconv.ParseUint(rightsStr, 0, 32)
		if err != nil {
			return capture.HandleRecord{}, errors.InvalidInput(errors.PhaseCapture, fmt.Sprintf("bad rights %q", rightsStr))
		}
		rights = handle.Rights(v)
	}
	return capture.HandleRecord{Type: typ.String(), Rights: rights}, nil
}

type TypesCmd struct{}

func (c *TypesCmd) Run(g *Globals) error {
	for _, name := range g.reg.Names() {
		t, _ := g.reg.Lookup(name)
		fmt.Printf("%s\t%s\t%d bytes inline\n", name, typeStyle.Render(t.TypeName()), t.InlineSize())
	}
	return nil
}
