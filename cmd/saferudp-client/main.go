// Command saferudp-client is the receiver endpoint of spec.md §6: it
// requests a named file from a sender and reassembles it to a local path,
// optionally exercising the simulated drop/delay channel policy of §4.8.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/anvilio/saferudp/internal/fileio"
	"github.com/anvilio/saferudp/internal/udpchan"
	"github.com/anvilio/saferudp/pkg/transport"
)

func main() {
	verbose := flag.Bool("v", false, "verbose (debug) logging")
	outDir := flag.String("o", ".", "output directory for the received file")
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	args := flag.Args()
	if len(args) != 6 {
		fmt.Println("usage: saferudp-client [-v] [-o output_dir] <server_ip> <server_port> <file_name> <receive_window> <channel_mode> <prob_percent>")
		os.Exit(1)
	}

	serverIP := args[0]
	serverPort, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("invalid server_port %q: %v\n", args[1], err)
		os.Exit(1)
	}
	fileName := args[2]
	rwnd, err := strconv.Atoi(args[3])
	if err != nil {
		fmt.Printf("invalid receive_window %q: %v\n", args[3], err)
		os.Exit(1)
	}
	modeArg, err := strconv.Atoi(args[4])
	if err != nil || modeArg < 0 || modeArg > 3 {
		fmt.Printf("invalid channel_mode %q: must be 0-3\n", args[4])
		os.Exit(1)
	}
	probPercent, err := strconv.Atoi(args[5])
	if err != nil || probPercent < 0 || probPercent > 100 {
		fmt.Printf("invalid prob_percent %q: must be 0-100\n", args[5])
		os.Exit(1)
	}

	serverAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", serverIP, serverPort))
	if err != nil {
		fmt.Printf("could not resolve server address: %v\n", err)
		os.Exit(1)
	}
	localAddr, err := net.ResolveUDPAddr("udp", ":0")
	if err != nil {
		fmt.Printf("could not resolve local address: %v\n", err)
		os.Exit(1)
	}
	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		fmt.Printf("could not bind socket: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	var ch transport.Channel = udpchan.New(conn)
	if mode := udpchan.Mode(modeArg); mode != udpchan.ModeNone {
		ch = udpchan.NewSimulated(ch, mode, probPercent)
	}

	outPath := filepath.Join(*outDir, fileName)
	out, err := fileio.CreateAppender(outPath)
	if err != nil {
		fmt.Printf("could not create output file %q: %v\n", outPath, err)
		os.Exit(1)
	}
	defer out.Close()

	receiver := transport.NewReceiverState(rwnd)
	if err := receiver.Serve(ch, serverAddr, fileName, out); err != nil {
		if err == transport.ErrFileNotFound {
			log.Errorf("[CLIENT] file not found on server : %s", fileName)
			os.Exit(0)
		}
		fmt.Printf("transfer failed: %v\n", err)
		os.Exit(1)
	}
	log.Infof("[CLIENT] transfer complete : %s", fileName)
}
