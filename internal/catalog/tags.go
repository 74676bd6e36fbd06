package catalog

import "strings"

// IDToTag converts an internal KPI id to the backend wire tag by
// replacing every underscore with a slash.
// Ex: "tanque_nivel" -> "tanque/nivel"
//
// The substitution is reversible because valid ids never contain a
// literal slash; the inverse is never needed in practice since KPIs
// are carried by id and only converted at the fetch boundary.
func IDToTag(id string) string {
	return strings.ReplaceAll(id, "_", "/")
}
