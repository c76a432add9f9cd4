package records

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ponytojas/go-timescale-records/internal/models"
)

var (
	errMissing  = errors.New("missing value")
	errNotATime = errors.New("not a timestamp")
	errNotAnInt = errors.New("not an integer")
	timeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999-07",
		"2006-01-02 15:04:05.999999999",
	}
)

// Normalize converts a raw record row into a Record. created_at must be a
// valid timestamp; measurements are passed through without validation.
func Normalize(row models.Row) (models.Record, error) {
	rawID, _ := row.Field(models.FieldID)
	id, err := toInt64(rawID)
	if err != nil {
		return models.Record{}, &FormatError{Field: models.FieldID, Value: rawID, Err: err}
	}

	createdAt, err := renderCreatedAt(row)
	if err != nil {
		return models.Record{}, err
	}

	return models.Record{
		ID:          id,
		Temperature: measurement(row, models.FieldTemperature),
		Humidity:    measurement(row, models.FieldHumidity),
		GasLevel:    measurement(row, models.FieldGasLevel),
		Light:       measurement(row, models.FieldLight),
		CreatedAt:   createdAt,
	}, nil
}

// RenderGasLevel converts a (gas_level, created_at) row into a GasLevelPoint
func RenderGasLevel(row models.Row) (models.GasLevelPoint, error) {
	createdAt, err := renderCreatedAt(row)
	if err != nil {
		return models.GasLevelPoint{}, err
	}
	return models.GasLevelPoint{
		GasLevel:  measurement(row, models.FieldGasLevel),
		CreatedAt: createdAt,
	}, nil
}

func renderCreatedAt(row models.Row) (string, error) {
	raw, _ := row.Field(models.FieldCreatedAt)
	t, err := toTime(raw)
	if err != nil {
		return "", &FormatError{Field: models.FieldCreatedAt, Value: raw, Err: err}
	}
	return models.FormatDate(t), nil
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, errMissing
	case time.Time:
		if x.IsZero() {
			return time.Time{}, errMissing
		}
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, errMissing
		}
		return toTime(*x)
	case pgtype.Timestamptz:
		if !x.Valid || x.InfinityModifier != pgtype.Finite {
			return time.Time{}, errNotATime
		}
		return x.Time, nil
	case pgtype.Timestamp:
		if !x.Valid || x.InfinityModifier != pgtype.Finite {
			return time.Time{}, errNotATime
		}
		return x.Time, nil
	case pgtype.Date:
		if !x.Valid || x.InfinityModifier != pgtype.Finite {
			return time.Time{}, errNotATime
		}
		return x.Time, nil
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", errNotATime, v)
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errMissing
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errNotATime
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, errMissing
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case pgtype.Int8:
		if !x.Valid {
			return 0, errMissing
		}
		return x.Int64, nil
	case pgtype.Int4:
		if !x.Valid {
			return 0, errMissing
		}
		return int64(x.Int32), nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, errNotAnInt
		}
		return id, nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", errNotAnInt, v)
	}
}

// measurement returns the raw value of field in a JSON friendly shape.
// NULL stays nil, and so do NaN and infinities, which JSON cannot carry.
func measurement(row models.Row, field string) any {
	v, ok := row.Field(field)
	if !ok {
		return nil
	}
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		if f, err := x.Float64Value(); err == nil && f.Valid {
			return finite(f.Float64)
		}
		return nil
	case pgtype.Float8:
		if !x.Valid {
			return nil
		}
		return finite(x.Float64)
	case pgtype.Float4:
		if !x.Valid {
			return nil
		}
		return finite(float64(x.Float32))
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case pgtype.Text:
		if !x.Valid {
			return nil
		}
		return x.String
	case []byte:
		return string(x)
	default:
		return v
	}
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
