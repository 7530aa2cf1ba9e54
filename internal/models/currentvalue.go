package models

import (
	"sort"
	"strconv"
)

// CurrentValueFromFields translates a raw sample payload into a CurrentValue:
// one component per field, datatype inferred from the JSON value, a single
// instance each. Fields with unsupported values are skipped. Components are
// ordered by field name so repeated samples produce identical structures.
func CurrentValueFromFields(fields map[string]any) CurrentValue {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var cv CurrentValue
	for _, name := range names {
		var (
			datatype Datatype
			value    string
		)
		switch v := fields[name].(type) {
		case float64:
			datatype = DatatypeNumber
			value = strconv.FormatFloat(v, 'f', -1, 64)
		case float32:
			datatype = DatatypeNumber
			value = strconv.FormatFloat(float64(v), 'f', -1, 64)
		case int:
			datatype = DatatypeNumber
			value = strconv.Itoa(v)
		case int64:
			datatype = DatatypeNumber
			value = strconv.FormatInt(v, 10)
		case bool:
			datatype = DatatypeBoolean
			value = strconv.FormatBool(v)
		case string:
			datatype = DatatypeString
			value = v
		default:
			continue
		}
		cv.Components = append(cv.Components, Component{
			ComponentID: name,
			Datatype:    datatype,
			Instances:   []Instance{{Index: 0, Value: value}},
		})
	}
	return cv
}
