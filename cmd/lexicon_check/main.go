package main

import (
	"flag"
	"fmt"
	"os"

	"rmi/internal/domain"
	"rmi/internal/engine"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

// Sample es un texto de prueba con el nivel de riesgo que debe producir el pre-screen.
type Sample struct {
	Lang     string
	Text     string
	Expected domain.RiskLevel
}

var defaultSamples = []Sample{
	{Lang: "en", Text: "I want to kill myself tonight", Expected: domain.RiskR3},
	{Lang: "en", Text: "Sometimes I think about SUICIDE", Expected: domain.RiskR3},
	{Lang: "en", Text: "I feel hopeless and I can't go on", Expected: domain.RiskR2},
	{Lang: "en", Text: "I can’t go on like this", Expected: domain.RiskR2},
	{Lang: "en", Text: "there is no point anymore", Expected: domain.RiskR2},
	{Lang: "en", Text: "had a long day at work, kind of tired", Expected: domain.RiskNone},
	{Lang: "de", Text: "Ich denke an Selbstmord", Expected: domain.RiskR3},
	{Lang: "de", Text: "ich kann nicht mehr, alles ist hoffnungslos", Expected: domain.RiskR2},
	{Lang: "de", Text: "Heute war ein schöner Tag", Expected: domain.RiskNone},
	{Lang: "zh", Text: "我真的不想活了", Expected: domain.RiskR3},
	{Lang: "zh", Text: "我快撑不下去了", Expected: domain.RiskR2},
	{Lang: "zh", Text: "今天天气很好", Expected: domain.RiskNone},
	// Tier 3 gana cuando ambos aparecen.
	{Lang: "en", Text: "hopeless, I want to end my life", Expected: domain.RiskR3},
}

// SampleResult es el resultado de correr un sample.
type SampleResult struct {
	Sample Sample
	Got    domain.RiskLevel
}

func (r SampleResult) Passed() bool {
	return r.Got == r.Sample.Expected
}

// runSamples corre cada sample contra el lexicon.
func runSamples(lex *engine.Lexicon, samples []Sample) []SampleResult {
	results := make([]SampleResult, 0, len(samples))
	for _, s := range samples {
		results = append(results, SampleResult{Sample: s, Got: lex.PreScreenCrisis(s.Text)})
	}
	return results
}

// checkTable devuelve los problemas estructurales y, si la tabla es válida, el lexicon compilado.
func checkTable(data []byte) (*engine.Lexicon, []string, error) {
	table, err := engine.ParseKeywordTable(data)
	if err != nil {
		return nil, nil, err
	}
	if problems := table.Problems(); len(problems) > 0 {
		return nil, problems, nil
	}
	lex, err := engine.NewLexicon(table)
	if err != nil {
		return nil, nil, err
	}
	return lex, nil, nil
}

func main() {
	path := flag.String("path", "", "tabla YAML a validar (vacío usa la embebida)")
	flag.Parse()

	var data []byte
	if *path == "" {
		data = engine.DefaultTableYAML()
	} else {
		b, err := os.ReadFile(*path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", *path, err)
			os.Exit(2)
		}
		data = b
	}

	lex, problems, err := checkTable(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%sinvalid table:%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("%s[problem]%s %s\n", colorRed, colorReset, p)
		}
		os.Exit(1)
	}
	fmt.Printf("%s[table]%s version %s ok\n", colorCyan, colorReset, lex.Version())

	failed := 0
	for _, r := range runSamples(lex, defaultSamples) {
		status := colorGreen + "PASS" + colorReset
		if !r.Passed() {
			status = colorRed + "FAIL" + colorReset
			failed++
		}
		fmt.Printf("%s [%s] %q expected=%s got=%s\n", status, r.Sample.Lang, r.Sample.Text, r.Sample.Expected, r.Got)
	}
	if failed > 0 {
		fmt.Printf("%d/%d samples failed\n", failed, len(defaultSamples))
		os.Exit(1)
	}
	fmt.Printf("%sall %d samples passed%s\n", colorGreen, len(defaultSamples), colorReset)
}
