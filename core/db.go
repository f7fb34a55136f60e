package core

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Transactor runs fn inside a database transaction.
// Repositories called with the ctx handed to fn take part in the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// AllowedOrderings keeps the orderings whose field is in `fields`, mapping them to their column name.
func AllowedOrderings(ordering []DBOrdering, fields map[string]string) []DBOrdering {
	allowed := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := fields[ord.Field]; ok {
			allowed = append(allowed, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return allowed
}

// StringList is a list of strings stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("StringList: cannot scan %T", src)
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if items == nil {
		items = []string{}
	}
	*l = items
	return nil
}

// Contains reports whether `s` is in the list.
func (l StringList) Contains(s string) bool {
	for _, item := range l {
		if item == s {
			return true
		}
	}
	return false
}
