package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"remod/internal/manifest"
	"remod/internal/resolution"
)

var (
	transformMode      string
	transformImportMap string
	transformCacheDir  string
	transformJSON      bool
)

var transformCmd = &cobra.Command{
	Use:   "transform <entry>",
	Short: "Transform a module graph into the cache",
	Long: `Transform the entry module and all of its transitive local dependencies,
printing the cache location of the transformed entry.

Examples:
  remod transform ./src/main.ts
  remod transform ./src/main.ts --import-map importmap.json
  remod transform https://example.com/mod.ts --mode passthrough`,
	Args: cobra.ExactArgs(1),
	Run:  runTransform,
}

func init() {
	transformCmd.Flags().StringVar(&transformMode, "mode", "",
		"Transform mode: strip, full-compile, passthrough (default from config)")
	transformCmd.Flags().StringVar(&transformImportMap, "import-map", "",
		"Caller-supplied import map; wins over discovered manifests")
	transformCmd.Flags().StringVar(&transformCacheDir, "cache-dir", "",
		"Cache root directory (default from config)")
	transformCmd.Flags().BoolVar(&transformJSON, "json", false,
		"Print the full result as JSON")
	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) {
	entry := args[0]
	eng, _, logger := mustGetEngine()

	caller, err := loadCallerMappings(transformImportMap)
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

	logger.Info("Transform complete", map[string]interface{}{
		"modules":   result.Modules,
		"edges":     result.Edges,
		"requestId": result.RequestID,
	})

	if transformJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}
	fmt.Println(result.Location)
}

// loadCallerMappings parses the caller-supplied import map, if any. These
// mappings take priority over anything discovered near the entry module.
func loadCallerMappings(path string) (resolution.Mappings, error) {
	if path == "" {
		return resolution.Mappings{}, nil
	}
	f, err := manifest.Load(path)
	if err != nil {
		return resolution.Mappings{}, err
	}
	return f.Mappings, nil
}
