package protocol

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/c360/ticketfront/errors"
)

// ParseInput splits a console line such as
//
//	query_ticket -s Beijing -t "Shanghai Hongqiao" -d 06-01
//
// into the command name and its ordered parameters. Double quotes group a value
// containing spaces. A key with no following value gets an empty value.
func ParseInput(line string) (string, []Param, error) {
	tokens, err := splitTokens(line)
	if err != nil {
		return "", nil, err
	}
	if len(tokens) == 0 {
		return "", nil, errors.WrapInvalid(errors.ErrEmptyCommand, "protocol", "ParseInput", "read command name")
	}

	name := tokens[0].text
	if tokens[0].quoted || isKey(tokens[0]) {
		return "", nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q is not a command name", errors.ErrParsingFailed, name),
			"protocol", "ParseInput", "read command name")
	}

	var params []Param
	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		if !isKey(tok) {
			return "", nil, errors.WrapInvalid(
				fmt.Errorf("%w: value %q has no -key", errors.ErrParsingFailed, tok.text),
				"protocol", "ParseInput", "read parameters")
		}

		param := Param{Key: tok.text[1:]}
		if i+1 < len(tokens) && !isKey(tokens[i+1]) {
			param.Value = tokens[i+1].text
			i++
		}
		params = append(params, param)
	}

	return name, params, nil
}

type token struct {
	text   string
	quoted bool
}

// isKey reports whether tok looks like "-key". Negative numbers are values.
func isKey(tok token) bool {
	if tok.quoted || len(tok.text) < 2 || tok.text[0] != '-' {
		return false
	}
	return !unicode.IsDigit(rune(tok.text[1]))
}

func splitTokens(line string) ([]token, error) {
	var (
		tokens  []token
		current strings.Builder
		inQuote bool
		quoted  bool
		started bool
	)

	flush := func() {
		if started {
			tokens = append(tokens, token{text: current.String(), quoted: quoted})
		}
		current.Reset()
		quoted = false
		started = false
	}

	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			quoted = true
			started = true
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}

	if inQuote {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: unterminated quote", errors.ErrParsingFailed),
			"protocol", "ParseInput", "split tokens")
	}
	flush()

	return tokens, nil
}
