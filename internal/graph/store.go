package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/vitormoschetta/go-familychat/internal/config"
)

// Result contém as linhas retornadas por uma consulta Cypher
type Result struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Truncated bool             `json:"truncated,omitempty"`
}

// Store encapsula o driver do Neo4j e executa apenas transações de leitura
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewStore conecta ao Neo4j e verifica a conectividade.
// Credenciais inválidas ou banco inacessível fazem a inicialização falhar.
func NewStore(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}

	logger.Info("Connected to Neo4j",
		zap.String("uri", cfg.URI),
		zap.String("database", cfg.Database),
	)

	return &Store{
		driver:   driver,
		database: cfg.Database,
		logger:   logger,
	}, nil
}

// Query executa a consulta em uma transação de leitura e lê no máximo limit linhas.
// limit <= 0 lê todas as linhas.
func (s *Store) Query(ctx context.Context, cypher string, limit int) (*Result, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, nil)
		if err != nil {
			return nil, err
		}

		result := &Result{Rows: []map[string]any{}}
		for res.Next(ctx) {
			if limit > 0 && len(result.Rows) == limit {
				result.Truncated = true
				break
			}
			record := res.Record()
			if result.Columns == nil {
				result.Columns = record.Keys
			}
			result.Rows = append(result.Rows, recordToRow(record))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		if result.Truncated {
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run cypher query: %w", err)
	}

	result := out.(*Result)
	s.logger.Debug("Cypher query executed",
		zap.String("cypher", cypher),
		zap.Int("rows", len(result.Rows)),
		zap.Bool("truncated", result.Truncated),
	)
	return result, nil
}

// Schema lê labels, tipos de relacionamento e propriedades do banco
func (s *Store) Schema(ctx context.Context) (string, error) {
	nodeProps, err := s.Query(ctx, nodePropertiesQuery, 0)
	if err != nil {
		return "", fmt.Errorf("failed to read node properties: %w", err)
	}
	relProps, err := s.Query(ctx, relPropertiesQuery, 0)
	if err != nil {
		return "", fmt.Errorf("failed to read relationship properties: %w", err)
	}
	patterns, err := s.Query(ctx, relPatternsQuery, 0)
	if err != nil {
		return "", fmt.Errorf("failed to read relationship patterns: %w", err)
	}

	return FormatSchema(nodeProps.Rows, relProps.Rows, patterns.Rows), nil
}

// Close encerra o driver
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func recordToRow(record *neo4j.Record) map[string]any {
	row := make(map[string]any, len(record.Keys))
	for i, key := range record.Keys {
		row[key] = Normalize(record.Values[i])
	}
	return row
}
