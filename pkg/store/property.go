package store

import (
	"context"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Properties are stored as (namespace, owner, key, value) rows where
// namespace is the owner's id kind.

// PropertiesGet loads the property set of one entity.
func PropertiesGet(ctx context.Context, db DBTX, owner sonar.ID) (sonar.Properties, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT key, value FROM property WHERE namespace = ? AND owner = ?`,
		uint32(owner.Kind()), owner.Ident())
	if err != nil {
		return nil, dbErr("list properties", err)
	}
	defer rows.Close()

	props := sonar.Properties{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, dbErr("scan property", err)
		}
		props[sonar.PropertyKey(key)] = sonar.PropertyValue(value)
	}
	return props, dbErr("list properties", rows.Err())
}

// PropertiesSet replaces the property set of one entity.
func PropertiesSet(ctx context.Context, db DBTX, owner sonar.ID, props sonar.Properties) error {
	if err := PropertiesClear(ctx, db, owner); err != nil {
		return err
	}
	for _, key := range props.Keys() {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO property (namespace, owner, key, value) VALUES (?, ?, ?, ?)`,
			uint32(owner.Kind()), owner.Ident(), key.String(), props[key].String()); err != nil {
			return dbErr("set property", err)
		}
	}
	return nil
}

// PropertiesUpdate applies a list of property updates to one entity.
func PropertiesUpdate(ctx context.Context, db DBTX, owner sonar.ID, updates []sonar.PropertyUpdate) error {
	for _, u := range updates {
		switch u.Action {
		case sonar.PropertySet:
			if _, err := db.ExecContext(ctx,
				`INSERT INTO property (namespace, owner, key, value) VALUES (?, ?, ?, ?)
				 ON CONFLICT (namespace, owner, key) DO UPDATE SET value = excluded.value`,
				uint32(owner.Kind()), owner.Ident(), u.Key.String(), u.Value.String()); err != nil {
				return dbErr("set property", err)
			}
		case sonar.PropertyRemove:
			if _, err := db.ExecContext(ctx,
				`DELETE FROM property WHERE namespace = ? AND owner = ? AND key = ?`,
				uint32(owner.Kind()), owner.Ident(), u.Key.String()); err != nil {
				return dbErr("remove property", err)
			}
		}
	}
	return nil
}

// PropertiesClear removes all properties of one entity.
func PropertiesClear(ctx context.Context, db DBTX, owner sonar.ID) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM property WHERE namespace = ? AND owner = ?`,
		uint32(owner.Kind()), owner.Ident())
	return dbErr("clear properties", err)
}
