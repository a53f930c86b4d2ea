// go-r30x
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-r30x.
//
// go-r30x is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-r30x is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-r30x; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/ZaparooProject/go-r30x"
	"github.com/ZaparooProject/go-r30x/detection"
	"github.com/ZaparooProject/go-r30x/fingerops"
)

const shellPrompt = "fps> "

// env is the state every command runs against. dev is nil for commands
// that work without a sensor.
type env struct {
	dev *r30x.Device
	ops *fingerops.FingerOperations
	cfg *Config
	out io.Writer
}

func newEnv(dev *r30x.Device, cfg *Config, out io.Writer) *env {
	e := &env{dev: dev, cfg: cfg, out: out}
	if dev != nil {
		e.ops = fingerops.New(dev)
		e.ops.SetPrompter(func(s fingerops.Step) {
			_, _ = fmt.Fprintf(out, "  %s\n", s)
		})
	}
	return e
}

type command struct {
	run      func(ctx context.Context, e *env, args []string) error
	name     string
	usage    string
	help     string
	minArgs  int
	noDevice bool
}

var errUsage = errors.New("usage")

var commands = []command{
	{name: "info", help: "show system parameters", run: cmdInfo},
	{name: "count", help: "number of stored templates", run: cmdCount},
	{name: "enroll", usage: "[location]", help: "enroll a finger", run: cmdEnroll},
	{name: "identify", help: "search the library for the finger on the sensor", run: cmdIdentify},
	{name: "verify", usage: "<location>", minArgs: 1, help: "compare the finger with one template", run: cmdVerify},
	{name: "delete", usage: "<location> [count]", minArgs: 1, help: "delete templates", run: cmdDelete},
	{name: "clear", usage: "yes", minArgs: 1, help: "delete every template", run: cmdClear},
	{name: "export", usage: "<location> <file>", minArgs: 2, help: "save a template to a file", run: cmdExport},
	{name: "import", usage: "<location> <file>", minArgs: 2, help: "store a template from a file", run: cmdImport},
	{name: "image", usage: "<file>", minArgs: 1, help: "capture and save the raw image", run: cmdImage},
	{name: "random", help: "random number from the sensor", run: cmdRandom},
	{name: "notepad", usage: "<page> [text]", minArgs: 1, help: "read or write a notepad page", run: cmdNotepad},
	{name: "security", usage: "<1-5>", minArgs: 1, help: "set the matching threshold", run: cmdSecurity},
	{name: "baud", usage: "<rate>", minArgs: 1, help: "switch the link baud rate", run: cmdBaud},
	{name: "datalen", usage: "<32|64|128|256>", minArgs: 1, help: "set the data packet length", run: cmdDataLength},
	{name: "detect", noDevice: true, help: "list attached sensors", run: cmdDetect},
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// runCommand executes one command line such as "verify 3".
func runCommand(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("no command given")
	}
	c, ok := findCommand(args[0])
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	return c.exec(ctx, e, args[1:])
}

func (c command) exec(ctx context.Context, e *env, args []string) error {
	if len(args) < c.minArgs {
		return fmt.Errorf("%w: %s %s", errUsage, c.name, c.usage)
	}
	if !c.noDevice && e.dev == nil {
		return errors.New("not connected")
	}
	return c.run(ctx, e, args)
}

// newShell builds the interactive shell over the command table.
func newShell(ctx context.Context, e *env) *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt(shellPrompt)
	for _, c := range commands {
		sh.AddCmd(&ishell.Cmd{
			Name: c.name,
			Help: strings.TrimSpace(c.usage + "  " + c.help),
			Func: func(ictx *ishell.Context) {
				if err := c.exec(ctx, e, ictx.Args); err != nil {
					ictx.Err(err)
				}
			},
		})
	}
	return sh
}

func parseLocation(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid location %q", s)
	}
	return n, nil
}

func parseInt(what, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return n, nil
}

func cmdInfo(ctx context.Context, e *env, _ []string) error {
	sp, err := e.dev.ReadSystemParameters(ctx)
	if err != nil {
		return err
	}
	count, err := e.dev.GetTemplateCount(ctx)
	if err != nil {
		return err
	}
	session := e.dev.Session()
	rows := map[string]string{
		"address":      fmt.Sprintf("0x%08X", sp.DeviceAddress),
		"baud":         strconv.Itoa(sp.BaudRate),
		"data length":  strconv.Itoa(sp.DataPacketLength),
		"library":      fmt.Sprintf("%d/%d", count, sp.LibrarySize),
		"security":     strconv.Itoa(sp.SecurityLevel),
		"status":       sp.StatusRegister.String(),
		"system id":    fmt.Sprintf("0x%04X", sp.SystemID),
		"last confirm": session.LastConfirmationCode.String(),
	}
	if pn, ok := e.dev.Transport().(r30x.PortNamer); ok {
		rows["port"] = pn.PortName()
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(e.out, "%-13s %s\n", k+":", rows[k])
	}
	return nil
}

func cmdCount(ctx context.Context, e *env, _ []string) error {
	n, err := e.dev.GetTemplateCount(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(e.out, n)
	return nil
}

func cmdEnroll(ctx context.Context, e *env, args []string) error {
	var opts fingerops.EnrollOptions
	if len(args) > 0 {
		loc, err := parseLocation(args[0])
		if err != nil {
			return err
		}
		opts.Location = loc
	}
	res, err := e.ops.Enroll(ctx, opts)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "enrolled at %d (score %d)\n", res.Location, res.Score)
	return nil
}

func cmdIdentify(ctx context.Context, e *env, _ []string) error {
	res, err := e.ops.Identify(ctx)
	if r30x.IsNoMatch(err) {
		_, _ = fmt.Fprintln(e.out, "no match")
		return nil
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "match %d (score %d)\n", res.FingerID, res.Score)
	return nil
}

func cmdVerify(ctx context.Context, e *env, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	score, err := e.ops.Verify(ctx, loc)
	if r30x.IsNoMatch(err) {
		_, _ = fmt.Fprintln(e.out, "no match")
		return nil
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "match (score %d)\n", score)
	return nil
}

func cmdDelete(ctx context.Context, e *env, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	count := 1
	if len(args) > 1 {
		if count, err = parseInt("count", args[1]); err != nil {
			return err
		}
	}
	if err := e.dev.DeleteTemplate(ctx, loc, count); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "deleted %d from %d\n", count, loc)
	return nil
}

func cmdClear(ctx context.Context, e *env, args []string) error {
	if args[0] != "yes" {
		return fmt.Errorf("%w: clear yes", errUsage)
	}
	if err := e.dev.ClearLibrary(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(e.out, "library cleared")
	return nil
}

func cmdExport(ctx context.Context, e *env, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	data, err := e.ops.ExportTemplate(ctx, loc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], data, 0o600); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	_, _ = fmt.Fprintf(e.out, "wrote %d bytes to %s\n", len(data), args[1])
	return nil
}

func cmdImport(ctx context.Context, e *env, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	if err := e.ops.ImportTemplate(ctx, loc, data); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "stored %s at %d\n", args[1], loc)
	return nil
}

func cmdImage(ctx context.Context, e *env, args []string) error {
	_, _ = fmt.Fprintf(e.out, "  %s\n", fingerops.StepPlaceFinger)
	if err := e.dev.WaitForFinger(ctx, r30x.FingerPollInterval); err != nil {
		return err
	}
	data, err := e.dev.ExportImage(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o600); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	_, _ = fmt.Fprintf(e.out, "wrote %d bytes to %s\n", len(data), args[0])
	return nil
}

func cmdRandom(ctx context.Context, e *env, _ []string) error {
	v, err := e.dev.GetRandomCode(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "0x%08X\n", v)
	return nil
}

func cmdNotepad(ctx context.Context, e *env, args []string) error {
	page, err := parseInt("page", args[0])
	if err != nil {
		return err
	}
	if len(args) > 1 {
		text := strings.Join(args[1:], " ")
		if err := e.dev.WriteNotepad(ctx, page, []byte(text)); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(e.out, "page %d written\n", page)
		return nil
	}
	data, err := e.dev.ReadNotepad(ctx, page)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "%q\n", strings.TrimRight(string(data), "\x00"))
	return nil
}

func cmdSecurity(ctx context.Context, e *env, args []string) error {
	level, err := parseInt("level", args[0])
	if err != nil {
		return err
	}
	return e.dev.SetSecurityLevel(ctx, level)
}

func cmdBaud(ctx context.Context, e *env, args []string) error {
	baud, err := parseInt("baud rate", args[0])
	if err != nil {
		return err
	}
	if err := e.dev.SetBaudRate(ctx, baud); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "link now at %d baud\n", baud)
	return nil
}

func cmdDataLength(ctx context.Context, e *env, args []string) error {
	n, err := parseInt("length", args[0])
	if err != nil {
		return err
	}
	return e.dev.SetDataLength(ctx, n)
}

func cmdDetect(ctx context.Context, e *env, _ []string) error {
	opts := e.cfg.DetectionOptions()
	devices, err := detection.DetectAll(ctx, &opts)
	if err != nil {
		return err
	}
	for _, d := range devices {
		_, _ = fmt.Fprintln(e.out, d)
	}
	return nil
}
