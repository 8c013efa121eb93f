package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Normalize converte valores do driver (nós, relacionamentos, caminhos,
// tipos temporais) em valores que serializam de forma legível em JSON
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case neo4j.Node:
		return nodeMap(val)
	case neo4j.Relationship:
		return relationshipMap(val)
	case neo4j.Path:
		nodes := make([]any, 0, len(val.Nodes))
		for _, n := range val.Nodes {
			nodes = append(nodes, nodeMap(n))
		}
		rels := make([]any, 0, len(val.Relationships))
		for _, r := range val.Relationships {
			rels = append(rels, relationshipMap(r))
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case time.Time:
		return val.Format(time.RFC3339)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case fmt.Stringer:
		// Date, LocalTime, LocalDateTime, Duration, Point
		return val.String()
	default:
		return val
	}
}

func nodeMap(n neo4j.Node) map[string]any {
	props := make(map[string]any, len(n.Props)+1)
	for k, v := range n.Props {
		props[k] = Normalize(v)
	}
	props["labels"] = n.Labels
	return props
}

func relationshipMap(r neo4j.Relationship) map[string]any {
	props := make(map[string]any, len(r.Props)+1)
	for k, v := range r.Props {
		props[k] = Normalize(v)
	}
	props["type"] = r.Type
	return props
}
