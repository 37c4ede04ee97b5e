// Command saferudp-server is the sender endpoint of spec.md §6: it waits
// for a file-name request datagram on <port>, then reliably transmits the
// requested file from the configured catalog.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/anvilio/saferudp/internal/catalog"
	"github.com/anvilio/saferudp/internal/fileio"
	"github.com/anvilio/saferudp/internal/udpchan"
	"github.com/anvilio/saferudp/pkg/segment"
	"github.com/anvilio/saferudp/pkg/transport"
)

func main() {
	verbose := flag.Bool("v", false, "verbose (debug) logging")
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	args := flag.Args()
	if len(args) < 2 {
		fmt.Println("usage: saferudp-server [-v] <port> <directory-or-catalog-path> [receive_window_hint]")
		os.Exit(1)
	}

	port, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("invalid port %q: %v\n", args[0], err)
		os.Exit(1)
	}
	servedPath := args[1]

	// Optional trailing receive_window_hint, for CLI symmetry with
	// saferudp-client: parsed so a malformed value is still caught early,
	// but SenderState has no rwnd field to feed it into (spec.md §6).
	if len(args) > 2 {
		if _, err := strconv.Atoi(args[2]); err != nil {
			fmt.Printf("invalid receive_window_hint %q: %v\n", args[2], err)
			os.Exit(1)
		}
		log.Debugf("[SERVER] receive_window_hint=%s ignored", args[2])
	}

	var cat *catalog.Catalog
	if len(servedPath) > 4 && servedPath[len(servedPath)-4:] == ".ini" {
		cat, err = catalog.Load(servedPath)
	} else {
		cat = catalog.FromDirectory(servedPath)
	}
	if err != nil {
		fmt.Printf("failed to load catalog %q: %v\n", servedPath, err)
		os.Exit(1)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		fmt.Printf("could not resolve bind address: %v\n", err)
		os.Exit(1)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		fmt.Printf("could not bind socket: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	ch := udpchan.New(conn)

	log.Infof("[SERVER] listening on port %d", port)

	for {
		if err := serveOne(ch, cat); err != nil {
			log.Warnf("[SERVER] session ended with error : %v", err)
		}
	}
}

// serveOne waits for a single file-name request and transmits that file in
// full before returning.
func serveOne(ch *udpchan.Conn, cat *catalog.Catalog) error {
	var buf []byte
	var from transport.Addr
	var err error
	for {
		buf, from, err = ch.Receive(requestWait)
		if err == nil || err != transport.ErrChannelTimeout {
			break
		}
	}
	if err != nil {
		return err
	}
	fileName := string(buf)
	log.Infof("[SERVER][RX] file request received : %s from %s", fileName, from)

	path, err := cat.Resolve(fileName)
	if err != nil {
		return ch.Send(from, []byte(segment.NotFoundMarker))
	}
	reader, err := fileio.OpenRangeReader(path)
	if err != nil {
		return ch.Send(from, []byte(segment.NotFoundMarker))
	}
	defer reader.Close()

	initialSeq := randomInitialSeq()
	sender := transport.NewSenderState(initialSeq, reader.Length(), transport.DefaultWindow)
	err = sender.Serve(reader, ch, from)
	if err == nil {
		log.Infof("[SERVER][TX] transfer complete : %s slow_start=%d cong_avoid=%d retransmits=%d",
			fileName, sender.Stats.SlowStartCount, sender.Stats.CongAvoidCount, sender.Stats.RetransmitCount)
	}
	return err
}

// requestWait bounds each poll for a new file-name request; the outer loop
// in serveOne simply retries on timeout, waiting indefinitely overall.
const requestWait = 30 * time.Second

func randomInitialSeq() uint32 {
	return rand.Uint32()
}
