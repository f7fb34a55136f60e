package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/storage/database"
)

// repo holds what every repository needs: the DB (or the transaction carried by ctx) and its builder.
type repo struct {
	db *database.DB
}

func (r repo) exec(ctx context.Context) sqlx.ExtContext {
	return r.db.Executor(ctx)
}

func (r repo) get(ctx context.Context, dest interface{}, b sq.SelectBuilder, notFound error, msg string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, r.exec(ctx), dest, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return notFound
		}
		return errors.Wrap(err, msg)
	}
	return nil
}

func (r repo) all(ctx context.Context, dest interface{}, b sq.SelectBuilder, msg string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return errors.Wrap(sqlx.SelectContext(ctx, r.exec(ctx), dest, query, args...), msg)
}

func (r repo) count(ctx context.Context, b sq.SelectBuilder, msg string) (int, error) {
	var n int
	if err := r.get(ctx, &n, b, sql.ErrNoRows, msg); err != nil {
		return 0, err
	}
	return n, nil
}

func (r repo) run(ctx context.Context, b sq.Sqlizer, msg string) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := r.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, msg)
	}
	return int(n), nil
}

// update runs b and maps "no row updated" to notFound.
func (r repo) update(ctx context.Context, b sq.UpdateBuilder, notFound error, msg string) error {
	n, err := r.run(ctx, b, msg)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (r repo) deleteByID(ctx context.Context, table string, ids []string, msg string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}
	return r.run(ctx, r.db.Builder.Delete(table).Where(sq.Eq{"id": valid}), msg)
}

// lockRow takes a row lock on postgres, held until the transaction carried by ctx ends.
// sqlite runs on a single connection, so a transaction there is already exclusive.
func (r repo) lockRow(ctx context.Context, table, id string, notFound error, msg string) error {
	if !database.InTransaction(ctx) {
		return errors.Errorf("%s requires a transaction", msg)
	}
	if !r.db.IsPostgres() {
		return nil
	}
	var locked string
	b := r.db.Builder.Select("id").From(table).Where(sq.Eq{"id": id}).Suffix("FOR UPDATE")
	return r.get(ctx, &locked, b, notFound, msg)
}

func newID() string {
	return uuid.New().String()
}

// validID filters out malformed IDs before they reach the DB; postgres would fail on them.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// like matches col against prefix+val+suffix, with the LIKE wildcards of val escaped.
func like(col, prefix, val, suffix string) sq.Sqlizer {
	return sq.Expr(col+` LIKE ? ESCAPE '\'`, prefix+likeEscaper.Replace(val)+suffix)
}

// search does a case-insensitive match of term on any of cols.
func search(term string, cols ...string) sq.Or {
	term = strings.ToLower(term)
	expr := make(sq.Or, 0, len(cols))
	for _, col := range cols {
		expr = append(expr, like("LOWER("+col+")", "%", term, "%"))
	}
	return expr
}

// hasItem matches rows whose JSON list column contains item.
func hasItem(col, item string) sq.Sqlizer {
	data, _ := json.Marshal(item)
	return like(col, "%", string(data), "%")
}

// orderBy applies the allowed orderings, or the default ones when none is allowed.
func orderBy(b sq.SelectBuilder, ordering []core.DBOrdering, fields map[string]string, defaults ...string) sq.SelectBuilder {
	allowed := core.AllowedOrderings(ordering, fields)
	if len(allowed) == 0 {
		return b.OrderBy(defaults...)
	}
	clauses := make([]string, 0, len(allowed))
	for _, ord := range allowed {
		clauses = append(clauses, ord.String())
	}
	return b.OrderBy(clauses...)
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
