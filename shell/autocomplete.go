package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"load":    {Options: []string{"-source"}},
	"format":  {Options: []string{"-condition"}, Args: []string{"regular", "postseason"}},
	"ratings": {Options: []string{"-url", "-file"}},
	"game":    {Options: []string{"-tc"}},
	"build":   {Options: []string{"-pin1", "-pin2", "-threads"}},
	"best":    {Options: []string{"-side", "-opp", "-own", "-n"}},
	"maximin": {Options: []string{"-side", "-own", "-n"}},
	"counter": {Options: []string{"-side", "-objective", "-own", "-n"}},
	"show":    {Options: []string{"-team1", "-team2"}},
	"sort":    {Options: []string{"-cols", "-n"}, Args: []string{"win", "decisive", "sweep", "tie"}},
	"sim":     {Options: []string{"-stop", "-iters", "-threads"}, Args: []string{"stop", "show", "scores", "hist"}},
	"live":    {Options: []string{"-feed"}, Args: []string{"show", "stop"}},
	"roster":  {Args: []string{"team1", "team2"}},
	"weight":  {Args: []string{"condition", "fast", "slow", "blitz", "first", "second"}},
	"help":    {Args: commandNames},
}

var commandNames = []string{
	"help", "load", "teams", "roster", "weight", "format", "ratings", "record",
	"game", "save", "build", "best", "maximin", "counter", "show", "sort",
	"sim", "live", "set", "exit",
}

var boolValues = []string{"true", "false"}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		// an open quote; fall back to simple space splitting
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if isOption(lastCompleteField) {
			switch strings.TrimPrefix(lastCompleteField, "-") {
			case "side":
				completions = []string{"team1", "team2"}
			case "source":
				completions = []string{"league", "sqlite"}
			case "objective":
				completions = []string{"best", "maximin"}
			case "stop":
				completions = []string{"95", "98", "99"}
			case "condition", "cols":
				completions = boolValues
			case "tc":
				completions = []string{"slow", "fast", "blitz"}
			}
			if completions == nil {
				completions = []string{}
			}
		}

		if cmdName == "teams" && completions == nil && c.sc.league != nil {
			completions = c.sc.league.TeamNames()
		}

		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
