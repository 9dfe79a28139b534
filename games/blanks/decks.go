/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"golang.org/x/sync/errgroup"
)

//go:embed decks/*.json
var defaultDecks embed.FS

// Decks holds the three card corpora. It is loaded once and never
// modified afterwards, so it may be shared between rooms.
type Decks struct {
	questions  []string
	answers    []string
	characters []string
}

// NewDecks builds a Decks from in-memory corpora. The slices are copied.
func NewDecks(questions, answers, characters []string) (*Decks, error) {
	d := &Decks{
		questions:  append([]string(nil), questions...),
		answers:    append([]string(nil), answers...),
		characters: append([]string(nil), characters...),
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// DefaultDecks loads the corpora compiled into the binary.
func DefaultDecks() (*Decks, error) {
	sub, err := fs.Sub(defaultDecks, "decks")
	if err != nil {
		return nil, err
	}
	return LoadDecks(sub)
}

// LoadDecks reads questions.json, answers.json and characters.json from
// the root of fsys. Each file must contain a JSON array of strings.
func LoadDecks(fsys fs.FS) (*Decks, error) {
	d := &Decks{}

	var g errgroup.Group
	g.Go(func() (err error) {
		d.questions, err = readDeck(fsys, "questions.json")
		return err
	})
	g.Go(func() (err error) {
		d.answers, err = readDeck(fsys, "answers.json")
		return err
	})
	g.Go(func() (err error) {
		d.characters, err = readDeck(fsys, "characters.json")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func readDeck(fsys fs.FS, name string) ([]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read deck %s: %w", path.Base(name), err)
	}

	var cards []string
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parse deck %s: %w", path.Base(name), err)
	}
	return cards, nil
}

func (d *Decks) validate() error {
	if len(d.questions) == 0 {
		return errors.New("question deck is empty")
	}
	if len(d.answers) == 0 {
		return errors.New("answer deck is empty")
	}
	return nil
}

func (d *Decks) Questions() int  { return len(d.questions) }
func (d *Decks) Answers() int    { return len(d.answers) }
func (d *Decks) Characters() int { return len(d.characters) }

// Question returns the base text of question i, or "" if out of range.
func (d *Decks) Question(i int) string {
	if i < 0 || i >= len(d.questions) {
		return ""
	}
	return d.questions[i]
}

// Answer returns the base text of answer i, or "" if out of range.
func (d *Decks) Answer(i int) string {
	if i < 0 || i >= len(d.answers) {
		return ""
	}
	return d.answers[i]
}

// Character returns character i, or "" if out of range.
func (d *Decks) Character(i int) string {
	if i < 0 || i >= len(d.characters) {
		return ""
	}
	return d.characters[i]
}
