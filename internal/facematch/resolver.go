package facematch

// Resolve scans every template of every candidate and keeps the strictly
// greatest score, so on ties the candidate seen first wins. An empty pool
// yields a zero Match without any comparison.
func Resolve(pool []Candidate, probe Template) Match {
	var m Match
	if len(pool) == 0 {
		return m
	}

	best := 0.0
	for i := range pool {
		for _, tpl := range pool[i].Templates {
			m.Compared++
			s, err := Evaluate(probe, tpl)
			if err != nil {
				m.Failures++
				continue
			}
			if s > best {
				best = s
				m.Candidate = &pool[i]
			}
		}
	}
	m.Confidence = best * 100
	return m
}
