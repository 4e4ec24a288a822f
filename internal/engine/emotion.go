package engine

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"rmi/internal/domain"
)

const (
	// EmotionWindow es la cantidad de mensajes de usuario que se analizan.
	EmotionWindow = 8
	// fixationSaturation es la frecuencia a partir de la cual la fijación satura.
	fixationSaturation = 3
)

var intensityMarkers = []*regexp.Regexp{
	regexp.MustCompile(`!{2,}`),
	regexp.MustCompile(`\?{2,}`),
	regexp.MustCompile(`\.{3,}`),
}

// EmotionFeatures expone los cuatro sub-signals normalizados.
type EmotionFeatures struct {
	Arousal      float64 `json:"arousal"`
	Helplessness float64 `json:"helplessness"`
	Intensity    float64 `json:"intensity"`
	Fixation     float64 `json:"fixation"`
}

// UserWindow devuelve los últimos n mensajes del usuario en orden cronológico.
func UserWindow(messages []domain.ChatMessage, n int) []domain.ChatMessage {
	var out []domain.ChatMessage
	for i := len(messages) - 1; i >= 0 && len(out) < n; i-- {
		if messages[i].IsUser() {
			out = append(out, messages[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ComputeEmotionSignal estima E_sys (0-100) a partir de la ventana reciente del usuario.
func (l *Lexicon) ComputeEmotionSignal(messages []domain.ChatMessage) int {
	score, _ := l.emotionSignal(messages)
	return score
}

func (l *Lexicon) emotionSignal(messages []domain.ChatMessage) (int, EmotionFeatures) {
	window := UserWindow(messages, EmotionWindow)
	if len(window) == 0 {
		return domain.DefaultEmotion, EmotionFeatures{}
	}

	var tokens, arousal, helpless, intensity, maxFreq int
	freq := map[string]int{}
	for _, m := range window {
		lower := strings.ToLower(m.Text)
		words := strings.Fields(lower)
		tokens += len(words)

		arousal += l.Count(lower, ClassHighArousal)
		helpless += l.Count(lower, ClassHelplessness)

		for _, re := range intensityMarkers {
			intensity += len(re.FindAllStringIndex(m.Text, -1))
		}
		if isShouting(m.Text) {
			intensity++
		}

		for _, w := range words {
			if utf8.RuneCountInString(w) <= 3 {
				continue
			}
			freq[w]++
			if freq[w] > maxFreq {
				maxFreq = freq[w]
			}
		}
	}

	n := float64(len(window))
	f := EmotionFeatures{
		Arousal:      capOne(float64(arousal) / math.Max(float64(tokens), 1)),
		Helplessness: capOne(float64(helpless) / n),
		Intensity:    capOne(float64(intensity) / n),
		Fixation:     capOne(float64(maxFreq) / fixationSaturation),
	}
	mean := (f.Arousal + f.Helplessness + f.Intensity + f.Fixation) / 4
	return roundHalfUp(mean * 100), f
}

// isShouting: más de 3 caracteres, todo en mayúsculas y con al menos una letra con caja.
func isShouting(text string) bool {
	t := strings.TrimSpace(text)
	if utf8.RuneCountInString(t) <= 3 || strings.ToUpper(t) != t {
		return false
	}
	for _, r := range t {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func capOne(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
