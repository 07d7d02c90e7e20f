package tags

import "fmt"

// CatalogVariable is one tag in the authoring dictionary. Value is only
// populated when the catalog is built against a resolved sale.
type CatalogVariable struct {
	Tag   string `json:"tag"`
	Value string `json:"valor,omitempty"`
}

// CatalogCategory groups the dictionary by namespace for display.
type CatalogCategory struct {
	Category  string            `json:"categoria"`
	Variables []CatalogVariable `json:"variables"`
}

// Catalog returns the tag dictionary grouped by namespace. With a nil
// values map it lists the full vocabulary; with a resolved map it keeps
// only the tags that carry a non-empty value, paired with that value.
// Categories left without variables are dropped.
func Catalog(values map[string]string) []CatalogCategory {
	out := make([]CatalogCategory, 0, 8)

	add := func(name string, tagNames []string) {
		vars := make([]CatalogVariable, 0, len(tagNames))
		for _, t := range tagNames {
			if values == nil {
				vars = append(vars, CatalogVariable{Tag: t})
				continue
			}
			if v := values[t]; v != "" {
				vars = append(vars, CatalogVariable{Tag: t, Value: v})
			}
		}
		if len(vars) > 0 {
			out = append(out, CatalogCategory{Category: name, Variables: vars})
		}
	}

	add("Cálculos de Cobranza y Deuda (ven.)", arrearsTags)

	saleTags := make([]string, 0, len(saleFields))
	for _, f := range saleFields {
		saleTags = append(saleTags, "{v."+f.Suffix+"}")
	}
	add("Información de Venta y Contrato (v.)", saleTags)

	entryTags := make([]string, 0, len(entryFields))
	for _, f := range entryFields {
		entryTags = append(entryTags, "{p."+f.Suffix+"}")
	}
	add("Detalle de Pagos y Mensualidad (p.)", entryTags)

	add("Datos Formateados para el Cliente (cl.)", clientSummaryTags)
	add("Variables de Control y Bloqueo (sys.)", controlTags)

	for i := 1; i <= coOwnerSlots; i++ {
		ct := make([]string, 0, len(clientFields))
		for _, f := range clientFields {
			ct = append(ct, fmt.Sprintf("{c%d.%s}", i, f.Suffix))
		}
		add(fmt.Sprintf("Datos Personales del Integrante %d (c%d.)", i, i), ct)
	}
	for i := 1; i <= coOwnerSlots; i++ {
		gt := make([]string, 0, len(managementFields))
		for _, f := range managementFields {
			gt = append(gt, fmt.Sprintf("{g%d.%s}", i, f.Suffix))
		}
		add(fmt.Sprintf("Switches y Gestión del Integrante %d (g%d.)", i, i), gt)
	}

	return out
}
