package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core/activity"
)

// publish loads the CSV at path into an authoring form and submits it to every classroom.
func (cli *commandLine) publish(ctx context.Context, path string, kind activity.Kind, classIDs []int64) error {
	f, err := openFunc(path)
	if err != nil {
		return errors.Wrap(err, "opening activity")
	}
	defer func() { _ = f.Close() }()

	form := activity.NewForm(kind, cli.api)
	warnings, err := form.Import(f)
	if err != nil {
		return errors.Wrapf(err, "importing %s", path)
	}
	cli.printWarnings(warnings)
	// the command line decides the targets
	for _, id := range form.Draft().ClassIDs {
		if err = form.DeselectClass(id); err != nil {
			return err
		}
	}
	for _, id := range classIDs {
		if err = form.SelectClass(id); err != nil {
			return err
		}
	}

	if err = form.Submit(ctx); err != nil {
		var uerr *activity.UploadError
		if errors.As(err, &uerr) && len(uerr.Succeeded) > 0 {
			fmt.Fprintf(cli.out, "published to classrooms %v\n", uerr.Succeeded)
		}
		return err
	}
	fmt.Fprintf(cli.out, "published %q to classrooms %v\n", form.Draft().Title, form.Draft().ClassIDs)
	return nil
}
