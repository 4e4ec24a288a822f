package service

// maxJSONCandidates acota el trabajo sobre respuestas largas del modelo.
const maxJSONCandidates = 4

// jsonObjects devuelve, en orden, los objetos {...} balanceados de nivel superior que
// aparecen en input. Las llaves dentro de strings no cuentan; un cierre sin apertura
// reinicia la búsqueda.
func jsonObjects(input string) []string {
	var out []string
	start, depth := -1, 0
	inString, escape := false, false

	for i := 0; i < len(input) && len(out) < maxJSONCandidates; i++ {
		ch := input[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, input[start:i+1])
				start = -1
			}
		}
	}
	return out
}
