package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"epichord/display"
	"epichord/midi"
	"epichord/parser"
	"epichord/player"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "SOUND"})

	cfg := parseArgs(os.Args[1:], logger)

	clock := player.NewSystemClock()
	port, err := midi.OpenOut(cfg.Port, clock.Now)
	if err != nil {
		logger.Fatalf("MIDI setup failed: %v", err)
	}

	engine := player.New(port, clock, logger)
	if cfg.TicksPerBeat > 0 {
		if err := engine.SetTicksPerBeat(cfg.TicksPerBeat); err != nil {
			logger.Errorf("** %v", err)
		}
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Error("** interrupted by signal")
		engine.Close()
		port.Close()
		os.Exit(0)
	}()

	logger.Info("Hello World", "port", port.String())

	if cfg.Monitor {
		if err := display.Run(engine, port.String()); err != nil {
			logger.Errorf("monitor failed: %v", err)
		}
		engine.Close()
		port.Close()
		return
	}

	exitRequested := false
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if !serveCommand(scanner.Text(), engine, logger) {
			exitRequested = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Errorf("error while reading stdin: %v", err)
		os.Exit(-1)
	}

	if !exitRequested {
		logger.Info("stdin is EOF. Terminating")
	}
	engine.Close()
	port.Close()
}

// serveCommand handles one control line. It returns false when the
// engine should shut down.
func serveCommand(line string, engine *player.Engine, logger *log.Logger) bool {
	cmd, err := parser.Parse(line)
	if err != nil {
		logger.Errorf("** %v", err)
		return true
	}

	switch cmd.Kind {
	case parser.Load:
		if err := engine.Load(cmd.SequencePath, cmd.TempoPath); err != nil {
			logger.Errorf("** %v", err)
		}
	case parser.LoadSMF:
		if err := engine.LoadSMF(cmd.SequencePath); err != nil {
			logger.Errorf("** %v", err)
		}
	case parser.Play:
		engine.Play()
	case parser.Stop:
		engine.Stop()
	case parser.Seek:
		engine.Seek(cmd.Number, cmd.Numerator, cmd.Denominator)
	case parser.CutAll:
		engine.CutAll()
	case parser.SetLoop:
		engine.SetLoop(cmd.LoopStart, cmd.LoopEnd)
	case parser.EnableLoop:
		if err := engine.EnableLoop(); err != nil {
			logger.Errorf("** %v", err)
		}
	case parser.DisableLoop:
		engine.DisableLoop()
	case parser.TicksPerBeat:
		if err := engine.SetTicksPerBeat(cmd.Ticks); err != nil {
			logger.Errorf("** %v", err)
		}
	case parser.Tell:
		fmt.Fprintf(os.Stdout, "%f\n", engine.CurrentBeat())
	case parser.Execute:
		if err := engine.Execute(cmd.Midi[0], cmd.Midi[1], cmd.Midi[2], cmd.Midi[3]); err != nil {
			logger.Errorf("** %v", err)
		}
	case parser.Ports:
		for _, name := range midi.OutPortNames() {
			logger.Info("output port", "name", name)
		}
	case parser.EnableCapture, parser.DisableCapture, parser.Capture:
		logger.Error("capture is not supported")
	case parser.Exit:
		return false
	case parser.Crash:
		panic("crash requested")
	}
	return true
}

// parseArgs extracts flags and merges them over the config file.
func parseArgs(args []string, logger *log.Logger) Config {
	configPath := defaultConfigPath
	var portFlag string
	var monitorFlag bool

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				logger.Fatal("--config requires a path")
			}
			configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--port":
			if i+1 >= len(args) {
				logger.Fatal("--port requires a name")
			}
			portFlag = args[i+1]
			i++
		case strings.HasPrefix(arg, "--port="):
			portFlag = strings.TrimPrefix(arg, "--port=")
		case arg == "--monitor":
			monitorFlag = true
		case arg == "--help" || arg == "-h":
			printUsage()
			os.Exit(0)
		default:
			logger.Fatalf("unknown argument %q", arg)
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if monitorFlag {
		cfg.Monitor = true
	}
	return cfg
}

func printUsage() {
	fmt.Println("Usage: epichord [--config <path>] [--port <name>] [--monitor]")
	fmt.Println()
	fmt.Println("Reads control commands from stdin:")
	fmt.Println("  load <seqPath> <tempoPath>   load a sequence + tempo dump")
	fmt.Println("  load-smf <path>              import a Standard MIDI File")
	fmt.Println("  play / stop                  transport")
	fmt.Println("  seek N [P/Q]                 move the playhead to a beat")
	fmt.Println("  cut-all                      silence hanging notes")
	fmt.Println("  set-loop L0 L1               loop endpoints in beats")
	fmt.Println("  enable-loop / disable-loop   loop on/off")
	fmt.Println("  ticks-per-beat N             timebase (stopped only)")
	fmt.Println("  tell                         print the current beat")
	fmt.Println("  execute T C A1 A2            emit one MIDI message (stopped only)")
	fmt.Println("  ports                        list MIDI outputs")
	fmt.Println("  exit / crash                 shut down / abort")
}
