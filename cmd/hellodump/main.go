// Copyright 2024 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// hellodump reads, composes and captures TLS 1.3 ClientHello messages.
//
// Usage:
//
//	hellodump [-framing auto|body|handshake|record|truncated] [file]
//	hellodump -profile chrome_142_windows_11 [-sni example.com] [-out hex]
//	hellodump -config hello.json [-out record]
//	hellodump -listen :8443 [-dir captures] [-compress zstd]
//	hellodump -list
//
// Input is read from file, or stdin when file is absent or "-". It may be
// hex or binary; files ending in .br, .zst or .zz are decompressed first.
// Output is the JSON form clienthello.Config reads, so a dump can be edited
// and fed back with -config.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/refraction-networking/clienthello"
	cherrors "github.com/refraction-networking/clienthello/errors"
	"github.com/refraction-networking/clienthello/profiles"
)

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	framing := flag.String("framing", "auto", "Input framing: auto, body, handshake, record or truncated")
	out := flag.String("out", "json", "Output: json, body, handshake or record (the last three in hex)")
	profileID := flag.String("profile", "", "Compose the ClientHello of a captured browser profile")
	configPath := flag.String("config", "", "Compose the ClientHello described by a JSON config file")
	sni := flag.String("sni", "", "Server name for -profile")
	listen := flag.String("listen", "", "Accept connections on this address and save their ClientHellos")
	dir := flag.String("dir", "captures", "Directory to save captures to (-listen)")
	compress := flag.String("compress", "zstd", "Compression of saved raw captures: zstd, brotli, zlib or none")
	dedup := flag.Bool("dedup", true, "Save one capture per cipher suite and extension layout (-listen)")
	list := flag.Bool("list", false, "List the captured browser profiles")
	verbose := flag.Bool("v", false, "Log parser details")
	flag.Parse()

	if *verbose {
		cherrors.SetLogLevel(cherrors.SeverityDebug)
	}
	cherrors.SetLogCallback(func(s cherrors.Severity, line string) {
		log.Printf("[%s] %s", s, line)
	})

	var err error
	switch {
	case *list:
		err = listProfiles(os.Stdout)
	case *listen != "":
		err = runCapture(*listen, *dir, *compress, *dedup)
	case *profileID != "" || *configPath != "":
		var ch *clienthello.ClientHello
		if ch, err = composeHello(*profileID, *configPath, *sni); err == nil {
			err = writeHello(os.Stdout, ch, *out)
		}
	default:
		var ch *clienthello.ClientHello
		if ch, err = readHello(flag.Arg(0), *framing); err == nil {
			err = writeHello(os.Stdout, ch, *out)
		}
	}
	if err != nil {
		if alert, ok := clienthello.AlertFor(err); ok && *listen == "" {
			log.Fatalf("%v (alert: %s)", err, alert)
		}
		log.Fatal(err)
	}
}

func runCapture(addr, dir, compress string, dedup bool) error {
	store, err := newCaptureStore(dir, compress, dedup)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	log.Printf("Listening on %s, saving captures to %s/", ln.Addr(), dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, ln, store)
}

// readHello reads one ClientHello from path in the given framing.
func readHello(path, framing string) (*clienthello.ClientHello, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return parseFramed(data, framing)
}

// parseFramed parses data as a bare body, a handshake message or a record.
// auto picks by the first byte.
func parseFramed(data []byte, framing string) (*clienthello.ClientHello, error) {
	if framing == "auto" {
		framing = "body"
		if len(data) > 0 {
			switch data[0] {
			case recordTypeHandshake:
				framing = "record"
			case typeClientHello:
				framing = "handshake"
			}
		}
	}
	switch framing {
	case "body":
		return clienthello.Parse(data)
	case "truncated":
		return clienthello.ParseTruncated(data)
	case "handshake":
		return clienthello.FromHandshake(data)
	case "record":
		return clienthello.FromRecord(data)
	}
	return nil, fmt.Errorf("unknown framing %q", framing)
}

// composeHello builds a ClientHello from a profile or a JSON config file.
func composeHello(profileID, configPath, sni string) (*clienthello.ClientHello, error) {
	if profileID != "" {
		p, ok := profiles.ByID(profileID)
		if !ok {
			return nil, fmt.Errorf("unknown profile %q, see -list", profileID)
		}
		cfg, err := p.Config(sni, nil)
		if err != nil {
			return nil, err
		}
		return clienthello.Compose(cfg)
	}

	data, err := readInput(configPath)
	if err != nil {
		return nil, err
	}
	cfg := new(clienthello.Config)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	if len(cfg.PSKIdentities) > 0 {
		ch, n, err := clienthello.ComposeTruncated(cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("Composed a truncated ClientHello; %d bytes of binders are missing", n)
		return ch, nil
	}
	return clienthello.Compose(cfg)
}

func writeHello(w io.Writer, ch *clienthello.ClientHello, format string) error {
	var data []byte
	switch format {
	case "json":
		out, err := json.MarshalIndent(ch, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", out)
		return err
	case "body":
		data = ch.Bytes()
	case "handshake":
		data = ch.Handshake()
	case "record":
		rec, err := ch.Record()
		if err != nil {
			return err
		}
		data = rec
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	_, err := fmt.Fprintln(w, hex.EncodeToString(data))
	return err
}

func listProfiles(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBROWSER\tVERSION\tPLATFORM")
	for _, p := range profiles.All() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.Browser, p.Version, p.Platform)
	}
	return tw.Flush()
}
