// Package rules implements the deterministic keyword/regex classifier.
package rules

import (
	"fmt"
	"regexp"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/merchant"
)

// Rule maps a pattern over the folded merchant+description text to a category.
type Rule struct {
	Name     string
	Category string
	Pattern  string
	Strength float64
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Every extra rule of the same category that matches adds corroborationBoost.
const (
	corroborationBoost = 0.05
	maxStrength        = 0.98
)

// Engine evaluates rules in declaration order.
type Engine struct {
	rules []compiledRule
}

// NewEngine pre-compiles the rules. Patterns are matched case-insensitively
// against text folded by merchant.Fold.
func NewEngine(rules []Rule) (*Engine, error) {
	e := &Engine{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if r.Category == "" {
			return nil, fmt.Errorf("rule %q: empty category", r.Name)
		}
		if r.Strength < 0 || r.Strength > 1 {
			return nil, fmt.Errorf("rule %q: strength %.2f out of [0,1]", r.Name, r.Strength)
		}
		re, err := regexp.Compile(`(?i)` + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		e.rules = append(e.rules, compiledRule{Rule: r, re: re})
	}
	return e, nil
}

// Default returns an engine loaded with DefaultRules.
func Default() *Engine {
	e, err := NewEngine(DefaultRules())
	if err != nil {
		panic("rules: invalid default catalogue: " + err.Error())
	}
	return e
}

// Categories lists the distinct categories of the catalogue in declaration order.
func (e *Engine) Categories() []string {
	seen := make(map[string]bool, len(e.rules))
	out := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}

// Match classifies text. The category with the highest strength wins; ties keep
// the first category declared.
func (e *Engine) Match(text string) domain.RuleMatch {
	folded := merchant.Fold(text)
	if folded == "" {
		return domain.RuleMatch{}
	}

	type candidate struct {
		best    compiledRule
		matches int
		order   int
	}
	byCategory := make(map[string]*candidate)

	for _, r := range e.rules {
		if !r.re.MatchString(folded) {
			continue
		}
		c, ok := byCategory[r.Category]
		if !ok {
			byCategory[r.Category] = &candidate{best: r, matches: 1, order: len(byCategory)}
			continue
		}
		c.matches++
		if r.Strength > c.best.Strength {
			c.best = r
		}
	}

	var (
		winner      *candidate
		winnerScore float64
	)
	for _, c := range byCategory {
		score := c.best.Strength + corroborationBoost*float64(c.matches-1)
		if winner == nil || score > winnerScore || (score == winnerScore && c.order < winner.order) {
			winner, winnerScore = c, score
		}
	}
	if winner == nil {
		return domain.RuleMatch{}
	}

	strength := winnerScore
	if strength > maxStrength {
		strength = maxStrength
	}
	return domain.RuleMatch{
		Hit:      true,
		Category: winner.best.Category,
		Strength: strength,
		Reason:   "rule:" + winner.best.Name,
	}
}
