package cli

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/platinummonkey/tartalacrm/pkg/validation"
)

// DateLayout is the format of dates typed at a prompt
const DateLayout = "2006-01-02 15:04"

// Prompter asks questions on an interactive terminal. Every question is
// asked again until the answer is valid.
type Prompter struct {
	in           *bufio.Reader
	out          io.Writer
	readPassword func(prompt string) (string, error)
}

// NewPrompter creates a Prompter. A nil readPassword reads from the terminal
// without echo when in is one.
func NewPrompter(in io.Reader, out io.Writer, readPassword func(prompt string) (string, error)) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, readPassword: readPassword}
	if p.readPassword == nil {
		p.readPassword = p.terminalPassword(in)
	}
	return p
}

func (p *Prompter) terminalPassword(in io.Reader) func(string) (string, error) {
	return func(prompt string) (string, error) {
		f, ok := in.(*os.File)
		if !ok || !term.IsTerminal(int(f.Fd())) {
			fmt.Fprint(p.out, prompt)
			return p.line()
		}
		fmt.Fprint(p.out, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}
}

func (p *Prompter) line() (string, error) {
	text, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && text != "") {
		return "", err
	}
	return strings.TrimRight(text, "\r\n"), nil
}

func (p *Prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s] : ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s : ", label)
	}
	answer, err := p.line()
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// String asks for a non-empty text. An empty answer keeps def.
func (p *Prompter) String(label, def string) (string, error) {
	for {
		answer, err := p.ask(label, def)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		fmt.Fprintln(p.out, "Ce champ ne peut être vide.")
	}
}

// Optional asks for a text that may be empty. An empty answer keeps def.
func (p *Prompter) Optional(label, def string) (string, error) {
	return p.ask(label, def)
}

// Int asks for a whole number.
func (p *Prompter) Int(label string, def *int64) (int64, error) {
	d := ""
	if def != nil {
		d = strconv.FormatInt(*def, 10)
	}
	for {
		answer, err := p.ask(label, d)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(answer, 10, 64)
		if err == nil {
			return n, nil
		}
		fmt.Fprintln(p.out, "Merci de n'entrer que des chiffres.")
	}
}

// Email asks for an email address.
func (p *Prompter) Email(label, def string) (string, error) {
	for {
		answer, err := p.ask(label, def)
		if err != nil {
			return "", err
		}
		if validation.IsEmail(answer) {
			return answer, nil
		}
		fmt.Fprintln(p.out, "Le format de cet email n'est pas valide.")
	}
}

// Date asks for a date in DateLayout, or a day alone meaning midnight. Dates
// are read in UTC.
func (p *Prompter) Date(label string, def *time.Time) (time.Time, error) {
	d := ""
	if def != nil && !def.IsZero() {
		d = def.UTC().Format(DateLayout)
	}
	for {
		answer, err := p.ask(label+" (AAAA-MM-JJ HH:MM)", d)
		if err != nil {
			return time.Time{}, err
		}
		for _, layout := range []string{DateLayout, "2006-01-02"} {
			if t, err := time.ParseInLocation(layout, answer, time.UTC); err == nil {
				return t, nil
			}
		}
		fmt.Fprintln(p.out, "Merci de respecter le format AAAA-MM-JJ HH:MM.")
	}
}

// Choice asks for one of choices, matched without case.
func (p *Prompter) Choice(label string, choices []string, def string) (string, error) {
	full := fmt.Sprintf("%s (%s)", label, strings.Join(choices, ", "))
	for {
		answer, err := p.ask(full, def)
		if err != nil {
			return "", err
		}
		for _, c := range choices {
			if strings.EqualFold(answer, c) {
				return c, nil
			}
		}
		fmt.Fprintf(p.out, "Merci de choisir parmi : %s.\n", strings.Join(choices, ", "))
	}
}

// Confirm asks a yes/no question. Anything but o, oui, y or yes is a no.
func (p *Prompter) Confirm(label string) (bool, error) {
	fmt.Fprintf(p.out, "%s [o/N] : ", label)
	answer, err := p.line()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "o", "oui", "y", "yes":
		return true, nil
	}
	return false, nil
}

// Password asks for a secret without echo.
func (p *Prompter) Password(label string) (string, error) {
	return p.readPassword(label + " : ")
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomPassword returns a 16 character password proposed to new users.
func randomPassword() (string, error) {
	out := make([]byte, 16)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
