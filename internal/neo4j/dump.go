package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Node is an exported graph node.
type Node struct {
	ID         int64          `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// Relationship is an exported graph relationship.
type Relationship struct {
	ID         int64          `json:"id"`
	Type       string         `json:"type"`
	StartID    int64          `json:"start_id"`
	EndID      int64          `json:"end_id"`
	Properties map[string]any `json:"properties"`
}

// Dump is a complete database export.
type Dump struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
	Metadata      DumpMetadata   `json:"metadata"`
}

// DumpMetadata records when and what was exported.
type DumpMetadata struct {
	ExportedAt        time.Time `json:"exported_at"`
	NodeCount         int       `json:"node_count"`
	RelationshipCount int       `json:"relationship_count"`
}

// Export reads every node and relationship from the database.
func (c *Client) Export(ctx context.Context) (*Dump, error) {
	nodeResult, err := c.Query(ctx, `
		MATCH (n)
		RETURN id(n) AS id, labels(n) AS labels, properties(n) AS properties`, nil)
	if err != nil {
		return nil, fmt.Errorf("exporting nodes: %w", err)
	}

	dump := &Dump{}
	for _, item := range nodeResult.Data {
		if len(item.Row) < 3 {
			continue
		}
		node := Node{Properties: map[string]any{}}
		if id, ok := item.Row[0].(float64); ok {
			node.ID = int64(id)
		}
		if labels, ok := item.Row[1].([]any); ok {
			for _, l := range labels {
				if s, ok := l.(string); ok {
					node.Labels = append(node.Labels, s)
				}
			}
		}
		if props, ok := item.Row[2].(map[string]any); ok {
			node.Properties = props
		}
		dump.Nodes = append(dump.Nodes, node)
	}

	relResult, err := c.Query(ctx, `
		MATCH (a)-[r]->(b)
		RETURN id(r) AS id, type(r) AS type, id(a) AS start_id, id(b) AS end_id,
		       properties(r) AS properties`, nil)
	if err != nil {
		return nil, fmt.Errorf("exporting relationships: %w", err)
	}
	for _, item := range relResult.Data {
		if len(item.Row) < 5 {
			continue
		}
		rel := Relationship{Properties: map[string]any{}}
		if id, ok := item.Row[0].(float64); ok {
			rel.ID = int64(id)
		}
		if typ, ok := item.Row[1].(string); ok {
			rel.Type = typ
		}
		if id, ok := item.Row[2].(float64); ok {
			rel.StartID = int64(id)
		}
		if id, ok := item.Row[3].(float64); ok {
			rel.EndID = int64(id)
		}
		if props, ok := item.Row[4].(map[string]any); ok {
			rel.Properties = props
		}
		dump.Relationships = append(dump.Relationships, rel)
	}

	dump.Metadata = DumpMetadata{
		ExportedAt:        time.Now().UTC(),
		NodeCount:         len(dump.Nodes),
		RelationshipCount: len(dump.Relationships),
	}
	return dump, nil
}

// importBatchSize bounds how many exported nodes or relationships go
// into one UNWIND statement.
const importBatchSize = 500

// Import recreates a dump's nodes and relationships. Nodes carry an
// _import_id property so relationship endpoints can be matched after
// the original internal ids are gone; the property is removed at the
// end. Data is added to whatever is already in the database.
func (c *Client) Import(ctx context.Context, dump *Dump) error {
	byLabels := map[string][]Node{}
	for _, node := range dump.Nodes {
		key := labelExpr(node.Labels)
		byLabels[key] = append(byLabels[key], node)
	}

	for labels, nodes := range byLabels {
		for start := 0; start < len(nodes); start += importBatchSize {
			end := min(start+importBatchSize, len(nodes))
			batch := make([]map[string]any, 0, end-start)
			for _, node := range nodes[start:end] {
				props := map[string]any{"_import_id": node.ID}
				for k, v := range node.Properties {
					props[k] = v
				}
				batch = append(batch, map[string]any{"props": props})
			}
			stmt := fmt.Sprintf("UNWIND $batch AS item CREATE (n%s) SET n = item.props", labels)
			if _, err := c.Run(ctx, Statement{Statement: stmt, Parameters: map[string]any{"batch": batch}}); err != nil {
				return fmt.Errorf("importing nodes: %w", err)
			}
		}
	}

	byType := map[string][]Relationship{}
	for _, rel := range dump.Relationships {
		byType[rel.Type] = append(byType[rel.Type], rel)
	}
	for relType, rels := range byType {
		for start := 0; start < len(rels); start += importBatchSize {
			end := min(start+importBatchSize, len(rels))
			batch := make([]map[string]any, 0, end-start)
			for _, rel := range rels[start:end] {
				batch = append(batch, map[string]any{
					"start": rel.StartID,
					"end":   rel.EndID,
					"props": rel.Properties,
				})
			}
			stmt := fmt.Sprintf(`
				UNWIND $batch AS item
				MATCH (a {_import_id: item.start}), (b {_import_id: item.end})
				CREATE (a)-[r:%s]->(b) SET r = item.props`, relType)
			if _, err := c.Run(ctx, Statement{Statement: stmt, Parameters: map[string]any{"batch": batch}}); err != nil {
				return fmt.Errorf("importing %s relationships: %w", relType, err)
			}
		}
	}

	_, err := c.Run(ctx, Statement{Statement: "MATCH (n) WHERE n._import_id IS NOT NULL REMOVE n._import_id"})
	if err != nil {
		return fmt.Errorf("cleaning up import markers: %w", err)
	}
	return nil
}

// ReadDump loads an export file.
func ReadDump(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var dump Dump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &dump, nil
}

// WriteDump saves an export file.
func WriteDump(dump *Dump, path string) error {
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func labelExpr(labels []string) string {
	expr := ""
	for _, l := range labels {
		expr += ":" + l
	}
	return expr
}
