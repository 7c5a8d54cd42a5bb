package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core/activity"
)

// check decodes the CSV at path and validates the resulting activity.
func (cli *commandLine) check(path string) error {
	f, err := openFunc(path)
	if err != nil {
		return errors.Wrap(err, "opening activity")
	}
	defer func() { _ = f.Close() }()

	var a activity.Activity
	dec := activity.NewDecoder(f)
	if err = dec.Decode(&a); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	cli.printWarnings(dec.Warnings())
	if err = a.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %q: %d problem(s), %d XP, %d warning(s)\n", a.Kind, a.Title, len(a.Problems), a.XP, len(dec.Warnings()))
	return nil
}
