package datastore

import (
	"github.com/lanewatch/lanewatch/internal/conf"
	"github.com/lanewatch/lanewatch/internal/errors"
)

// Open returns the store selected in settings.Output. The schema is not
// created; call EnsureSchema before the first Append.
func Open(settings *conf.Settings) (Store, error) {
	out := settings.Output
	switch {
	case out.SQLite.Enabled:
		return OpenSQLite(out.SQLite.Path)
	case out.MySQL.Enabled:
		return OpenMySQL(MySQLConfig{
			Username: out.MySQL.Username,
			Password: out.MySQL.Password,
			Host:     out.MySQL.Host,
			Port:     out.MySQL.Port,
			Database: out.MySQL.Database,
		})
	case out.CSV.Enabled:
		return NewCSVStore(out.CSV.Path), nil
	}
	return nil, errors.Newf("no record store enabled in output settings").
		Component("datastore").
		Category(errors.CategoryConfiguration).
		Build()
}
