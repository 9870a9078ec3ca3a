// Copyright 2024 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/refraction-networking/clienthello"
	cherrors "github.com/refraction-networking/clienthello/errors"
)

const (
	recordTypeAlert     = 0x15
	recordTypeHandshake = 0x16
	typeClientHello     = 0x01

	// TLS record layer constraints per RFC 8446
	tlsRecordHeaderLen = 5
	tlsRecordMaxLength = 16384 // 2^14
	tlsRecordMinLength = 4 + 2 + 32 + 1

	clientHelloTimeout = 10 * time.Second
	maxSeenLayouts     = 50000
	maxNameLength      = 64
)

// captureStore saves ClientHellos captured from connections as a JSON dump
// and the raw record, optionally compressed.
type captureStore struct {
	dir      string
	compress string
	dedup    bool

	next atomic.Uint32

	mu   sync.Mutex // guards seen and file writes
	seen map[[sha256.Size]byte]bool
}

func newCaptureStore(dir, compress string, dedup bool) (*captureStore, error) {
	if _, _, err := compressor(compress, io.Discard); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}
	return &captureStore{
		dir:      dir,
		compress: compress,
		dedup:    dedup,
		seen:     make(map[[sha256.Size]byte]bool),
	}, nil
}

// serve accepts connections until ctx is done. Each connection is read for
// one ClientHello record and closed; a malformed one is answered with the
// fatal alert the parser maps it to.
func serve(ctx context.Context, ln net.Listener, store *captureStore) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			cherrors.LogWarningInner(ctx, err, "hellodump: accept")
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.handle(ctx, conn)
		}()
	}
}

func (s *captureStore) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	ctx = cherrors.ContextWithID(ctx, cherrors.ID(s.next.Add(1)))

	conn.SetReadDeadline(time.Now().Add(clientHelloTimeout))
	rec, err := readRecord(conn)
	switch {
	case errors.Is(err, io.EOF):
		// Port checks connect and close without sending anything.
		cherrors.LogInfoInner(ctx, err, "hellodump: no ClientHello from ", conn.RemoteAddr())
		return
	case err != nil:
		cherrors.LogWarningInner(ctx, err, "hellodump: reading ClientHello from ", conn.RemoteAddr())
		return
	}
	ch, err := clienthello.FromRecord(rec)
	if err != nil {
		cherrors.LogWarningInner(ctx, err, "hellodump: parsing ClientHello from ", conn.RemoteAddr())
		if alert, ok := clienthello.AlertFor(err); ok {
			conn.Write([]byte{recordTypeAlert, 0x03, 0x03, 0x00, 0x02, 2, byte(alert)})
		}
		return
	}
	saved, err := s.save(ctx, ch)
	switch {
	case err != nil:
		cherrors.LogError(ctx, "hellodump: saving capture: ", err)
	case saved:
		cherrors.LogInfo(ctx, "hellodump: captured ", ch.Len(), " byte ClientHello from ", conn.RemoteAddr())
	default:
		cherrors.LogDebug(ctx, "hellodump: skipped duplicate ClientHello from ", conn.RemoteAddr())
	}
}

// readRecord reads one complete handshake record carrying a ClientHello.
func readRecord(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	header := make([]byte, tlsRecordHeaderLen)
	if n, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("read header: got %d bytes: %w", n, err)
	}
	if header[0] != recordTypeHandshake {
		return nil, fmt.Errorf("not a handshake record: content type 0x%02x (expected 0x16)", header[0])
	}
	recordLen := int(binary.BigEndian.Uint16(header[3:]))
	if recordLen < tlsRecordMinLength {
		return nil, fmt.Errorf("record too small for ClientHello: %d bytes (minimum %d)", recordLen, tlsRecordMinLength)
	}
	if recordLen > tlsRecordMaxLength {
		return nil, fmt.Errorf("record exceeds maximum TLS size: %d bytes (max %d)", recordLen, tlsRecordMaxLength)
	}

	rec := make([]byte, tlsRecordHeaderLen+recordLen)
	copy(rec, header)
	if n, err := io.ReadFull(br, rec[tlsRecordHeaderLen:]); err != nil {
		return nil, fmt.Errorf("read payload: got %d of %d bytes: %w", n, recordLen, err)
	}
	if rec[tlsRecordHeaderLen] != typeClientHello {
		return nil, fmt.Errorf("not a ClientHello: handshake type 0x%02x (expected 0x01)", rec[tlsRecordHeaderLen])
	}
	return rec, nil
}

// layoutKey identifies a ClientHello by its cipher suites and extension
// order, the parts that stay fixed across connections from one client.
func layoutKey(ch *clienthello.ClientHello) ([sha256.Size]byte, error) {
	order, err := ch.ExtensionOrder()
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	h := sha256.New()
	binary.Write(h, binary.BigEndian, ch.CipherSuites())
	h.Write([]byte{0})
	binary.Write(h, binary.BigEndian, order)
	var key [sha256.Size]byte
	h.Sum(key[:0])
	return key, nil
}

// save writes <id>-<server name>.json and the raw record next to it, the id
// being the one ctx carries. It reports false for a layout already saved.
func (s *captureStore) save(ctx context.Context, ch *clienthello.ClientHello) (bool, error) {
	dump, err := json.MarshalIndent(ch, "", "  ")
	if err != nil {
		return false, err
	}
	rec, err := ch.Record()
	if err != nil {
		return false, err
	}
	var raw bytes.Buffer
	w, ext, err := compressor(s.compress, &raw)
	if err != nil {
		return false, err
	}
	if _, err := w.Write(rec); err != nil {
		return false, err
	}
	if err := w.Close(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dedup {
		key, err := layoutKey(ch)
		if err != nil {
			return false, err
		}
		if s.seen[key] {
			return false, nil
		}
		if len(s.seen) >= maxSeenLayouts {
			clear(s.seen)
		}
		s.seen[key] = true
	}

	name := fmt.Sprintf("%06d", cherrors.IDFromContext(ctx))
	if names, err := ch.ServerNames(); err == nil && len(names) > 0 {
		if safe := sanitizeFilename(names[0], maxNameLength); safe != "" {
			name += "-" + safe
		}
	}
	if err := safeWriteFile(s.dir, name+".json", dump, 0o644); err != nil {
		return false, err
	}
	if err := safeWriteFile(s.dir, name+".bin"+ext, raw.Bytes(), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// safeWriteFile writes data to a file after verifying the directory is not a symlink.
func safeWriteFile(dir, filename string, data []byte, perm os.FileMode) error {
	info, err := os.Lstat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("directory %s is a symlink, refusing to write", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", dir)
	}
	return os.WriteFile(filepath.Join(dir, filename), data, perm)
}

// sanitizeFilename keeps the characters of s that are safe in a file name.
func sanitizeFilename(s string, maxLen int) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '-' || r == '_' || (r == '.' && result.Len() > 0) {
			result.WriteRune(r)
		}
		if result.Len() >= maxLen {
			break
		}
	}
	return strings.TrimRight(result.String(), ".")
}
