package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dpshade/pocket-doc/internal/cli"
	"github.com/dpshade/pocket-doc/internal/config"
	"github.com/dpshade/pocket-doc/internal/server"
	"github.com/dpshade/pocket-doc/internal/service"
	"github.com/dpshade/pocket-doc/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

var version = "0.1.0"

func printHelp() {
	fmt.Printf(`pocket-doc - Template-driven document workflow

USAGE:
    pocket-doc [OPTIONS] [COMMAND]

OPTIONS:
    --help          Show this help information
    --version       Print version information
    --init          Initialize a new document library
    --api           Start the HTTP API server
    --port          Port for the API server (default: 8080)
    --env-file      Load configuration from a specific .env file

COMMANDS:
    (no command)       Start interactive TUI mode
    list, ls           List documents
    search <query>     Search documents by title
    get, show <id>     Show a specific document
    create, new        Create a new document
    set <id> <f> <v>   Set a field value
    unset <id> <f>     Remove a field
    validate <id>      Check a document against its template
    approve <id>       Validate and mark as validated
    finalize <id>      Mark as final
    render <id>        Render through the template
    archive <id>       Move to the archive
    delete, rm <id>    Delete a document
    templates          List templates
    template           Template management (new, show, delete)
    help               Show CLI command help

EXAMPLES:
    pocket-doc                                      # Start interactive mode
    pocket-doc --init                               # Initialize new library
    pocket-doc --api --port 9000                    # Start API on port 9000
    pocket-doc create "March Invoice" --template invoice
    pocket-doc set 4f7c... client "Acme Corp"
    pocket-doc validate 4f7c... --format json
    pocket-doc template new invoice --slot client:string --slot amount:number

STORAGE:
    Default directory: ~/.pocket-doc
    Override with: POCKET_DOC_DIR=<path>
`)
}

func main() {
	var showVersion bool
	var initLib bool
	var showHelp bool
	var apiServer bool
	var port int
	var envFile string

	flag.BoolVar(&showVersion, "version", false, "Print version information")
	flag.BoolVar(&initLib, "init", false, "Initialize a new document library")
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&apiServer, "api", false, "Start the HTTP API server")
	flag.IntVar(&port, "port", 8080, "Port for the API server")
	flag.StringVar(&envFile, "env-file", "", "Load configuration from a specific .env file")
	flag.Parse()

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("pocket-doc version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	svc, err := service.NewService(cfg.LibraryDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if initLib {
		if err := svc.InitLibrary(); err != nil {
			fmt.Fprintln(os.Stderr, "Error initializing library:", err)
			os.Exit(1)
		}
		fmt.Printf("Initialized document library at %s\n", svc.BaseDir())
		return
	}

	if apiServer {
		srv := server.NewServer(svc, port)
		if err := srv.Start(); err != nil {
			fmt.Printf("Error starting API server: %v\n", err)
			os.Exit(1)
		}
		return
	}

	args := flag.Args()
	if len(args) > 0 {
		cliHandler := cli.NewCLI(svc)
		if err := cliHandler.ExecuteCommand(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(ui.NewModel(svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
