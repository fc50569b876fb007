package config

// ApplyDefaults fills unset fields with their defaults. It is called by
// Load before validation; call it directly when building a Venue in code.
func ApplyDefaults(v *Venue) {
	if v.ReconcilePolicy == "" {
		v.ReconcilePolicy = ReconcileOverwrite
	}

	if v.DefaultCategory == "" && len(v.Categories) == 1 {
		v.DefaultCategory = v.Categories[0].Name
	}

	for hi := range v.Headers {
		if v.Headers[hi].Value == "" {
			v.Headers[hi].Value = ValueUsed
		}
		if v.Headers[hi].Label != "" {
			v.Headers[hi].Label = NormalizeLabel(v.Headers[hi].Label)
		}
	}

	for ci := range v.Categories {
		for wi := range v.Categories[ci].Windows {
			w := &v.Categories[ci].Windows[wi]
			if w.Kind == "" {
				w.Kind = KindSliding
			}
			if w.Label == "" && w.Duration > 0 {
				w.Label = LabelForDuration(w.Duration)
			}
			w.Label = NormalizeLabel(w.Label)
		}
	}
}
