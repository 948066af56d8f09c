package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"remod/internal/index"
)

var (
	graphFormat    string
	graphImportMap string
)

var graphCmd = &cobra.Command{
	Use:   "graph <entry>",
	Short: "Transform a module graph and export its dependency edges",
	Long: `Transform the entry module and print the resolved dependency edges the
walk produced, including what each specifier was rewritten to.

Examples:
  remod graph ./src/main.ts
  remod graph ./src/main.ts --format yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphFormat, "format", "json", "Output format (json, yaml)")
	graphCmd.Flags().StringVar(&graphImportMap, "import-map", "",
		"Caller-supplied import map; wins over discovered manifests")
	rootCmd.AddCommand(graphCmd)
}

// GraphExport is the graph command's output document.
type GraphExport struct {
	Entry     string          `json:"entry" yaml:"entry"`
	Location  string          `json:"location" yaml:"location"`
	RequestID string          `json:"requestId" yaml:"requestId"`
	Modules   int             `json:"modules" yaml:"modules"`
	Edges     []index.EdgeRow `json:"edges" yaml:"edges"`
}

func runGraph(cmd *cobra.Command, args []string) {
	entry := args[0]
	eng, _, _ := mustGetEngine()

	ledger, _, _, _ := getLedger()
	if ledger == nil {
		fmt.Fprintln(os.Stderr, "graph export requires the cache index (index.enabled=true)")
		os.Exit(1)
	}

	caller, err := loadCallerMappings(graphImportMap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading import map: %v\n", err)
		os.Exit(1)
	}

	table, err := eng.BuildTable(entry, caller)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building resolution table: %v\n", err)
		os.Exit(1)
	}

	result, err := eng.Transform(context.Background(), entry, table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	edges, err := ledger.EdgesForRequest(result.RequestID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading edges: %v\n", err)
		os.Exit(1)
	}

	export := GraphExport{
		Entry:     entry,
		Location:  result.Location,
		RequestID: result.RequestID,
		Modules:   result.Modules,
		Edges:     edges,
	}

	switch graphFormat {
	case "yaml":
		data, err := yaml.Marshal(export)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding yaml: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
	default:
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding json: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	}
}
