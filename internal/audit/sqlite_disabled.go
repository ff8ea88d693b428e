//go:build !sqlite
// +build !sqlite

package audit

import (
	"errors"

	logx "smarttask/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite audit log not built: build with -tags sqlite")
}
