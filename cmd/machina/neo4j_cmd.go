package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/numberone-ai/machina-tools/internal/log"
	"github.com/numberone-ai/machina-tools/internal/neo4j"
	"github.com/numberone-ai/machina-tools/internal/output"
)

// neo4jClient builds a client from compose discovery, falling back to
// config defaults when the compose file has no neo4j service details.
func neo4jClient() (*neo4j.Client, error) {
	ws, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}

	conn, err := neo4j.DiscoverConn(composeFilePath(ws.Root), cfg.Neo4j.Database)
	if err != nil {
		conn = neo4j.ConnConfig{
			Host:     "localhost",
			HTTPPort: cfg.Neo4j.HTTPPort,
			Username: "neo4j",
			Password: "neo4j",
			Database: cfg.Neo4j.Database,
		}
	}
	return neo4j.NewClient(conn), nil
}

func newNeo4jCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "neo4j",
		Short:   "Query and move data in the local Neo4j instance",
		GroupID: GroupData,
	}
	cmd.AddCommand(newNeo4jQueryCmd())
	cmd.AddCommand(newNeo4jExportCmd())
	cmd.AddCommand(newNeo4jImportCmd())
	return cmd
}

func newNeo4jQueryCmd() *cobra.Command {
	var (
		file   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "query [cypher]",
		Short: "Run a Cypher query",
		Long: `Run a Cypher query against the local Neo4j instance. Connection
details are read from the workspace compose file.

Examples:
  machina neo4j query "MATCH (n) RETURN count(n)"
  machina neo4j query --file query.cypher --format json
  machina neo4j query "MATCH (o:ObservationValueNode) RETURN count(o)" -f count`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var cypher string
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				cypher = string(data)
			case len(args) == 1:
				cypher = args[0]
			default:
				return fmt.Errorf("provide a query argument or --file")
			}
			if strings.TrimSpace(cypher) == "" {
				return fmt.Errorf("query is empty")
			}

			fmtValue, err := neo4j.ParseFormat(format)
			if err != nil {
				return err
			}

			client, err := neo4jClient()
			if err != nil {
				return err
			}
			result, err := client.Query(ctx, cypher, nil)
			if err != nil {
				return err
			}
			return neo4j.WriteResult(output.FromContext(ctx).Writer(), result, fmtValue)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Read the query from a file")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, csv, count")
	return cmd
}

func newNeo4jExportCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full database to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)

			client, err := neo4jClient()
			if err != nil {
				return err
			}

			l.Println("Exporting database, this may take a while...")
			dump, err := client.Export(ctx)
			if err != nil {
				return err
			}

			if err := neo4j.WriteDump(dump, outFile); err != nil {
				return err
			}
			l.Printf("Exported %d nodes and %d relationships to %s\n",
				dump.Metadata.NodeCount, dump.Metadata.RelationshipCount, outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "neo4j_export.json", "Output file")
	return cmd
}

func newNeo4jImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON export into the database",
		Long: `Import a previous export. Data is added to the current database;
clear it first if you need a clean import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)

			dump, err := neo4j.ReadDump(args[0])
			if err != nil {
				return err
			}

			client, err := neo4jClient()
			if err != nil {
				return err
			}

			l.Printf("Importing %d nodes and %d relationships...\n", len(dump.Nodes), len(dump.Relationships))
			if err := client.Import(ctx, dump); err != nil {
				return err
			}
			l.Println("Import complete")
			return nil
		},
	}
	return cmd
}
