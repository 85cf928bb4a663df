package sqlxrepos

import (
	"strings"

	"github.com/trezcool/lectern/core"
)

// repo holds the default executor. Every repository method accepts an optional
// executor (usually a transaction) that takes precedence over it.
type repo struct {
	exec core.DBExecutor
}

func (r repo) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return r.exec
}

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
