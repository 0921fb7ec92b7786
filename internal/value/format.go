package value

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// DateLayout is the layout used to display dates.
const DateLayout = "2006-01-02"

// Format is the default Projector. It understands the pgtype values produced
// by the CSV and Postgres sources as well as plain Go scalars.
func Format(datum any) string {
	switch d := datum.(type) {
	case nil:
		return ""
	case string:
		return d
	case pgtype.Text:
		return d.String
	case pgtype.Numeric:
		v, err := d.Value()
		if err != nil {
			return ""
		}
		s, _ := v.(string)
		return s
	case pgtype.Date:
		return d.Time.Format(DateLayout)
	case pgtype.Timestamptz:
		return d.Time.Format(time.RFC3339)
	case pgtype.Bool:
		return strconv.FormatBool(d.Bool)
	case pgtype.Int8:
		return strconv.FormatInt(d.Int64, 10)
	case pgtype.Int4:
		return strconv.FormatInt(int64(d.Int32), 10)
	case pgtype.Float8:
		return strconv.FormatFloat(d.Float64, 'f', -1, 64)
	case pgtype.UUID:
		return uuid.UUID(d.Bytes).String()
	case int:
		return strconv.Itoa(d)
	case int64:
		return strconv.FormatInt(d, 10)
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(d)
	case time.Time:
		return d.Format(DateLayout)
	case fmt.Stringer:
		return d.String()
	default:
		return fmt.Sprint(d)
	}
}
