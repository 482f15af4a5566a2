package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/google/uuid"
	"github.com/hybridserver/hybridserver/internal/apperr"
	"github.com/hybridserver/hybridserver/internal/resource"

	_ "github.com/lib/pq"
)

// identifierRE is the column/table-name allowlist: only these
// characters may appear in anything interpolated into a query string.
// Every identifier used by SQLStore is a compile-time constant already
// matching it; the check exists so a future caller can't be tricked
// into widening the table/column set with attacker input.
var identifierRE = regexp.MustCompile(`^[0-9a-zA-Z_-]+$`)

func validIdentifier(s string) bool { return identifierRE.MatchString(s) }

// SQLStore is the relational backend: one table per resource type,
// accessed through a *sql.DB connection pool. A connection is taken
// for each operation and returned on every exit path, including
// errors — SQLStore never holds a connection across calls.
type SQLStore struct {
	db        *sql.DB
	typ       resource.Type
	table     string
	hasXSD    bool
	logger    *slog.Logger
}

// NewSQLStore opens (but does not migrate — the schema is externally
// provisioned) a store for typ backed by table.
func NewSQLStore(db *sql.DB, typ resource.Type, table string, logger *slog.Logger) (*SQLStore, error) {
	if !validIdentifier(table) {
		return nil, fmt.Errorf("store: invalid table name %q", table)
	}
	return &SQLStore{
		db:     db,
		typ:    typ,
		table:  table,
		hasXSD: typ == resource.XSLT,
		logger: logger,
	}, nil
}

func (s *SQLStore) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return apperr.New(apperr.KindBackend, "acquire connection", err)
	}
	defer conn.Close()
	return fn(conn)
}

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (resource.WebResource, bool, error) {
	var r resource.WebResource
	var found bool
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var content string
		var xsdStr sql.NullString
		query := fmt.Sprintf("SELECT content%s FROM %s WHERE uuid = $1", s.xsdSelect(), s.table)
		row := conn.QueryRowContext(ctx, query, id.String())
		var scanErr error
		if s.hasXSD {
			scanErr = row.Scan(&content, &xsdStr)
		} else {
			scanErr = row.Scan(&content)
		}
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil
		}
		if scanErr != nil {
			s.logger.Warn("sql store get failed", "type", s.typ, "error", scanErr)
			return apperr.New(apperr.KindBackend, "sql get", scanErr)
		}
		found = true
		r = resource.WebResource{Type: s.typ, UUID: id, Content: content}
		if s.hasXSD && xsdStr.Valid {
			if xsd, ok := resource.ParseUUID(xsdStr.String); ok {
				r.XSD = xsd
			}
		}
		return nil
	})
	return r, found, err
}

func (s *SQLStore) xsdSelect() string {
	if s.hasXSD {
		return ", xsd"
	}
	return ""
}

func (s *SQLStore) Put(ctx context.Context, r resource.WebResource) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		var res sql.Result
		var err error
		if s.hasXSD {
			query := fmt.Sprintf(
				"INSERT INTO %s (uuid, content, xsd) SELECT $1, $2, $3 WHERE NOT EXISTS (SELECT 1 FROM %s WHERE uuid = $1)",
				s.table, s.table,
			)
			res, err = conn.ExecContext(ctx, query, r.UUID.String(), r.Content, r.XSD.String())
		} else {
			query := fmt.Sprintf(
				"INSERT INTO %s (uuid, content) SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM %s WHERE uuid = $1)",
				s.table, s.table,
			)
			res, err = conn.ExecContext(ctx, query, r.UUID.String(), r.Content)
		}
		if err != nil {
			s.logger.Warn("sql store put failed", "type", s.typ, "error", err)
			return apperr.New(apperr.KindBackend, "sql put", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperr.New(apperr.KindBackend, "sql put rows affected", err)
		}
		if n == 0 {
			return apperr.New(apperr.KindConflict, "sql put", apperr.ErrAlreadyMapped)
		}
		return nil
	})
}

func (s *SQLStore) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	var removed bool
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		query := fmt.Sprintf("DELETE FROM %s WHERE uuid = $1", s.table)
		res, err := conn.ExecContext(ctx, query, id.String())
		if err != nil {
			s.logger.Warn("sql store remove failed", "type", s.typ, "error", err)
			return apperr.New(apperr.KindBackend, "sql remove", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperr.New(apperr.KindBackend, "sql remove rows affected", err)
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

func (s *SQLStore) UUIDSet(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{})
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		query := fmt.Sprintf("SELECT uuid FROM %s", s.table)
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			s.logger.Warn("sql store uuid_set failed", "type", s.typ, "error", err)
			return apperr.New(apperr.KindBackend, "sql uuid_set", err)
		}
		defer rows.Close()
		for rows.Next() {
			var idStr string
			if err := rows.Scan(&idStr); err != nil {
				return apperr.New(apperr.KindBackend, "sql uuid_set scan", err)
			}
			if id, ok := resource.ParseUUID(idStr); ok {
				out[id] = struct{}{}
			}
		}
		return rows.Err()
	})
	return out, err
}

func (s *SQLStore) WebResources(ctx context.Context) ([]resource.WebResource, error) {
	var out []resource.WebResource
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		query := fmt.Sprintf("SELECT uuid, content%s FROM %s", s.xsdSelect(), s.table)
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			s.logger.Warn("sql store web_resources failed", "type", s.typ, "error", err)
			return apperr.New(apperr.KindBackend, "sql web_resources", err)
		}
		defer rows.Close()
		for rows.Next() {
			var idStr, content string
			var xsdStr sql.NullString
			if s.hasXSD {
				err = rows.Scan(&idStr, &content, &xsdStr)
			} else {
				err = rows.Scan(&idStr, &content)
			}
			if err != nil {
				return apperr.New(apperr.KindBackend, "sql web_resources scan", err)
			}
			id, ok := resource.ParseUUID(idStr)
			if !ok {
				continue
			}
			r := resource.WebResource{Type: s.typ, UUID: id, Content: content}
			if s.hasXSD && xsdStr.Valid {
				if xsd, ok := resource.ParseUUID(xsdStr.String); ok {
					r.XSD = xsd
				}
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

func (s *SQLStore) Close() error { return s.db.Close() }

// TableName returns the conventional table name for typ, used by
// server wiring when the caller doesn't specify one explicitly.
func TableName(typ resource.Type) string {
	switch typ {
	case resource.HTML:
		return "html_resources"
	case resource.XML:
		return "xml_resources"
	case resource.XSD:
		return "xsd_resources"
	case resource.XSLT:
		return "xslt_resources"
	default:
		return "resources"
	}
}
