// Package datasource describes the connectors a session can query.
package datasource

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind discriminates connector families.
type Kind string

const (
	// KindSQL connectors reach a database with their own credentials.
	KindSQL Kind = "sql"
	// KindManaged connectors hold data the agent manages in process.
	KindManaged Kind = "managed"
)

// Connector is what the rest of the system needs to know about a data source.
type Connector interface {
	Name() string
	Kind() Kind
	// Equals reports whether other points at the same source with the same credentials.
	Equals(other Connector) bool
	// DirectSQLEnabled reports whether generated SQL may run against the source directly.
	DirectSQLEnabled() bool
}

var credentialValidator = validator.New()

// Credentials identify a SQL source.
type Credentials struct {
	Dialect  string `validate:"required,oneof=postgres mysql sqlite snowflake databricks"`
	Host     string `validate:"required_unless=Dialect sqlite"`
	Port     int    `validate:"gte=0,lte=65535"`
	Database string `validate:"required"`
	Username string
	Password string
}

// SQLConnector is a credentialed source; it always supports direct SQL.
type SQLConnector struct {
	name        string
	table       string
	credentials Credentials
}

// NewSQLConnector validates credentials and returns the connector.
func NewSQLConnector(name string, table string, credentials Credentials) (*SQLConnector, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("sql connector name is required")
	}
	if err := credentialValidator.Struct(credentials); err != nil {
		return nil, fmt.Errorf("sql connector %s: %w", name, err)
	}
	return &SQLConnector{name: name, table: table, credentials: credentials}, nil
}

func (c *SQLConnector) Name() string { return c.name }

func (c *SQLConnector) Kind() Kind { return KindSQL }

func (c *SQLConnector) Table() string { return c.table }

func (c *SQLConnector) DirectSQLEnabled() bool { return true }

// Equals compares credential identity; the table is not part of it.
func (c *SQLConnector) Equals(other Connector) bool {
	peer, ok := other.(*SQLConnector)
	if !ok || peer == nil {
		return false
	}
	return c.credentials == peer.credentials
}

// ManagedConnector is an in-process source flagged for direct SQL individually.
type ManagedConnector struct {
	name      string
	columns   []string
	directSQL bool
}

func NewManagedConnector(name string, columns []string, directSQL bool) *ManagedConnector {
	owned := make([]string, len(columns))
	copy(owned, columns)
	return &ManagedConnector{name: name, columns: owned, directSQL: directSQL}
}

func (c *ManagedConnector) Name() string { return c.name }

func (c *ManagedConnector) Kind() Kind { return KindManaged }

func (c *ManagedConnector) Columns() []string {
	out := make([]string, len(c.columns))
	copy(out, c.columns)
	return out
}

func (c *ManagedConnector) DirectSQLEnabled() bool { return c.directSQL }

func (c *ManagedConnector) Equals(other Connector) bool {
	peer, ok := other.(*ManagedConnector)
	if !ok || peer == nil {
		return false
	}
	return c.name == peer.name
}

// Describe renders a one-line summary per connector for prompts.
func Describe(connectors []Connector) string {
	var sb strings.Builder
	for index, connector := range connectors {
		if index > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("- %s (%s)", connector.Name(), connector.Kind()))
		switch typed := connector.(type) {
		case *SQLConnector:
			if typed.table != "" {
				sb.WriteString(fmt.Sprintf(" table=%s dialect=%s", typed.table, typed.credentials.Dialect))
			}
		case *ManagedConnector:
			if len(typed.columns) > 0 {
				sb.WriteString(" columns=" + strings.Join(typed.columns, ","))
			}
		}
	}
	return sb.String()
}
