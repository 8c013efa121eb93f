package graph

import (
	"fmt"
	"sort"
	"strings"
)

const (
	nodePropertiesQuery = `
		CALL db.schema.nodeTypeProperties()
		YIELD nodeLabels, propertyName, propertyTypes
		RETURN nodeLabels, propertyName, propertyTypes`

	relPropertiesQuery = `
		CALL db.schema.relTypeProperties()
		YIELD relType, propertyName, propertyTypes
		RETURN relType, propertyName, propertyTypes`

	relPatternsQuery = `
		MATCH (a)-[r]->(b)
		RETURN DISTINCT labels(a) AS start, type(r) AS type, labels(b) AS end
		LIMIT 200`
)

// FormatSchema monta a descrição textual do esquema usada no prompt de geração de Cypher
func FormatSchema(nodeProps, relProps, patterns []map[string]any) string {
	var b strings.Builder

	b.WriteString("Node properties are the following:\n")
	for _, line := range groupProperties(nodeProps, func(row map[string]any) string {
		return strings.Join(stringList(row["nodeLabels"]), ":")
	}) {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("Relationship properties are the following:\n")
	for _, line := range groupProperties(relProps, func(row map[string]any) string {
		return cleanRelType(asString(row["relType"]))
	}) {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("The relationships are the following:\n")
	seen := make(map[string]bool)
	var rels []string
	for _, row := range patterns {
		rel := fmt.Sprintf("(:%s)-[:%s]->(:%s)",
			strings.Join(stringList(row["start"]), ":"),
			asString(row["type"]),
			strings.Join(stringList(row["end"]), ":"),
		)
		if !seen[rel] {
			seen[rel] = true
			rels = append(rels, rel)
		}
	}
	sort.Strings(rels)
	for _, rel := range rels {
		b.WriteString(rel)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// groupProperties agrupa as propriedades por label e gera "Label {prop: TYPE, ...}"
func groupProperties(rows []map[string]any, keyOf func(map[string]any) string) []string {
	props := make(map[string][]string)
	var keys []string
	for _, row := range rows {
		key := keyOf(row)
		if key == "" {
			continue
		}
		if _, ok := props[key]; !ok {
			keys = append(keys, key)
			props[key] = nil
		}
		name := asString(row["propertyName"])
		if name == "" {
			continue
		}
		typ := "ANY"
		if types := stringList(row["propertyTypes"]); len(types) > 0 {
			typ = strings.ToUpper(types[0])
		}
		props[key] = append(props[key], fmt.Sprintf("%s: %s", name, typ))
	}

	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		sort.Strings(props[key])
		lines = append(lines, fmt.Sprintf("%s {%s}", key, strings.Join(props[key], ", ")))
	}
	return lines
}

// cleanRelType converte ":`PARENT_OF`" em "PARENT_OF"
func cleanRelType(s string) string {
	s = strings.TrimPrefix(s, ":")
	return strings.Trim(s, "`")
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
