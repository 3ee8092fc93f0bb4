// Package export renders production plans in file formats for operators.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/kilianp07/powerplan/core/dispatch"
	"github.com/kilianp07/powerplan/core/model"
)

// Row is the exported line for one powerplant.
type Row struct {
	Name       string
	Type       string
	Power      model.Tenths
	CostPerMWh float64
}

// Rows pairs the plan allocations with the plants they were computed for.
// plants must be the slice the plan was computed from.
func Rows(plants []model.Powerplant, plan dispatch.Plan) []Row {
	rows := make([]Row, len(plan.Allocations))
	for i, a := range plan.Allocations {
		rows[i] = Row{Name: a.Name, Type: plants[i].Type.String(), Power: a.Power}
		if i < len(plan.CostPerMWh) {
			rows[i].CostPerMWh = plan.CostPerMWh[i]
		}
	}
	return rows
}

// WriteCSV writes the rows to w with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "type", "p", "cost_per_mwh"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Name,
			r.Type,
			r.Power.String(),
			strconv.FormatFloat(r.CostPerMWh, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
