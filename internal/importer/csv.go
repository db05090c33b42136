package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fantasycricket/internal/adapters/mq/queue"
	"github.com/okian/fantasycricket/internal/domain/model"
)

// playerNamespace derives stable ids for rows without one, so importing the
// same file twice finds the same players.
var playerNamespace = uuid.MustParse("6f1c7c2e-1d1b-4f55-9a47-5a3c0f0c8e11")

type column int

const (
	colID column = iota
	colName
	colAffiliation
	colRole
	colTotalRuns
	colBallsFaced
	colInnings
	colWickets
	colOvers
	colRunsConceded
)

var headerAliases = map[string]column{
	"id":            colID,
	"playerid":      colID,
	"name":          colName,
	"player":        colName,
	"playername":    colName,
	"affiliation":   colAffiliation,
	"team":          colAffiliation,
	"university":    colAffiliation,
	"country":       colAffiliation,
	"role":          colRole,
	"category":      colRole,
	"totalruns":     colTotalRuns,
	"runs":          colTotalRuns,
	"ballsfaced":    colBallsFaced,
	"inningsplayed": colInnings,
	"innings":       colInnings,
	"wickets":       colWickets,
	"oversbowled":   colOvers,
	"overs":         colOvers,
	"runsconceded":  colRunsConceded,
}

var canonicalNames = [...]string{
	colID:           "id",
	colName:         "name",
	colAffiliation:  "affiliation",
	colRole:         "role",
	colTotalRuns:    "total_runs",
	colBallsFaced:   "balls_faced",
	colInnings:      "innings_played",
	colWickets:      "wickets",
	colOvers:        "overs_bowled",
	colRunsConceded: "runs_conceded",
}

var requiredColumns = []column{colName, colRole, colTotalRuns, colBallsFaced, colInnings, colWickets, colOvers, colRunsConceded}

// RowError reports a row that could not be turned into a player.
type RowError struct {
	Line int    `json:"line"`
	Msg  string `json:"error"`
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// Records streams players from a CSV file with a header row. A bad row
// yields a *RowError and reading goes on; a bad header or an unreadable
// file yields a plain error and ends the sequence.
func Records(r io.Reader, now time.Time) iter.Seq2[queue.Record, error] {
	return func(yield func(queue.Record, error) bool) {
		cr := csv.NewReader(r)
		cr.TrimLeadingSpace = true
		cr.FieldsPerRecord = -1

		header, err := cr.Read()
		if err != nil {
			yield(queue.Record{}, fmt.Errorf("%w: %w", ErrHeader, err))
			return
		}
		cols, err := mapHeader(header)
		if err != nil {
			yield(queue.Record{}, err)
			return
		}

		for {
			row, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if !yield(queue.Record{}, &RowError{Line: parseErr.Line, Msg: parseErr.Err.Error()}) {
					return
				}
				continue
			}
			if err != nil {
				yield(queue.Record{}, fmt.Errorf("read csv: %w", err))
				return
			}
			if blank(row) {
				continue
			}
			line, _ := cr.FieldPos(0)

			p, err := parseRow(row, cols, now)
			if err != nil {
				if !yield(queue.Record{}, &RowError{Line: line, Msg: err.Error()}) {
					return
				}
				continue
			}
			if !yield(queue.Record{Line: line, Player: p}, nil) {
				return
			}
		}
	}
}

func mapHeader(header []string) (map[column]int, error) {
	cols := make(map[column]int, len(header))
	for i, h := range header {
		key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(h)))
		if c, ok := headerAliases[key]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, columnName(c))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrHeader, strings.Join(missing, ", "))
	}
	return cols, nil
}

func columnName(c column) string {
	return canonicalNames[c]
}

func parseRow(row []string, cols map[column]int, now time.Time) (model.Player, error) {
	cell := func(c column) string {
		i, ok := cols[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	name := cell(colName)
	if name == "" {
		return model.Player{}, errors.New("name is empty")
	}
	role, err := model.ParseRole(cell(colRole))
	if err != nil {
		return model.Player{}, err
	}

	var s model.RawStats
	ints := []struct {
		col column
		dst *int
	}{
		{colTotalRuns, &s.TotalRuns},
		{colBallsFaced, &s.BallsFaced},
		{colInnings, &s.InningsPlayed},
		{colWickets, &s.Wickets},
		{colRunsConceded, &s.RunsConceded},
	}
	for _, f := range ints {
		if *f.dst, err = parseInt(cell(f.col)); err != nil {
			return model.Player{}, err
		}
	}
	if raw := cell(colOvers); raw != "" {
		if s.OversBowled, err = strconv.ParseFloat(raw, 64); err != nil {
			return model.Player{}, fmt.Errorf("overs %q is not a number", raw)
		}
	}
	if err := s.Validate(); err != nil {
		return model.Player{}, err
	}

	affiliation := cell(colAffiliation)
	id := cell(colID)
	if id == "" {
		id = uuid.NewSHA1(playerNamespace, []byte(strings.ToLower(name+"|"+affiliation))).String()
	}
	return model.Player{
		ID:          id,
		Name:        name,
		Affiliation: affiliation,
		Role:        role,
		Stats:       s,
		Seed:        true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		// some exports write counters as 12.0
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("%q is not a whole number", raw)
		}
		v = int(f)
	}
	return v, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
