package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/travelog/internal/entry"
	"github.com/roach88/travelog/internal/geo"
	"github.com/roach88/travelog/internal/journal"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Latitude  float64
	Longitude float64
	Place     string
	Note      string
	Favorite  bool
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <image-uri>",
		Short: "Save a new travel moment",
		Long: `Save a photo with the place it was taken and an optional note.

Without --place the address is the capture coordinates.

Example:
  travelog add file:///DCIM/0042.jpg --lat 48.8606 --lon 2.3376 --place "Louvre, Paris"
  travelog add img://beach --note "sunset swim" --favorite`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Latitude, "lat", 0, "capture latitude")
	cmd.Flags().Float64Var(&opts.Longitude, "lon", 0, "capture longitude")
	cmd.Flags().StringVar(&opts.Place, "place", "", "address to record instead of the coordinates")
	cmd.Flags().StringVar(&opts.Note, "note", "", "note to attach")
	cmd.Flags().BoolVar(&opts.Favorite, "favorite", false, "mark as favorite")

	return cmd
}

func runAdd(opts *AddOptions, imageURI string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var geocoder geo.Geocoder = geo.CoordinateGeocoder{}
	if opts.Place != "" {
		geocoder = geo.StaticGeocoder{Place: geo.Place{Name: opts.Place}}
	}

	s, err := openSession(cmd, opts.RootOptions, journal.WithGeocoder(geocoder))
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	e, err := s.journal.Create(commandContext(cmd), journal.CreateInput{
		ImageURI:    imageURI,
		Coordinates: geo.Coordinates{Latitude: opts.Latitude, Longitude: opts.Longitude},
		Note:        opts.Note,
		Favorite:    opts.Favorite,
	})
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.JSON() {
		return formatter.Success(e)
	}
	fmt.Fprintf(formatter.Writer, "✓ Saved %s\n", e.ID)
	writeEntry(formatter.Writer, e)
	return nil
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Favorites bool
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Entries []entry.Entry `json:"entries"`
	Count   int           `json:"count"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List saved moments, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Favorites, "favorites", false, "only list favorites")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	entries, err := s.journal.List(commandContext(cmd), journal.Filter{FavoritesOnly: opts.Favorites})
	if err != nil {
		return fail(formatter, err)
	}
	formatter.VerboseLog("Loaded %d entr(ies) from %s backend", len(entries), s.cfg.Backend)

	if formatter.JSON() {
		return formatter.Success(ListResult{Entries: entries, Count: len(entries)})
	}

	if len(entries) == 0 {
		if opts.Favorites {
			fmt.Fprintln(formatter.Writer, "No favorites yet.")
		} else {
			fmt.Fprintln(formatter.Writer, "No entries yet.")
		}
		return nil
	}
	for _, e := range entries {
		writeEntry(formatter.Writer, e)
	}
	fmt.Fprintf(formatter.Writer, "\n%d entr(ies)\n", len(entries))
	return nil
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one saved moment",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
}

func runShow(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openSession(cmd, opts)
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	e, err := s.journal.Get(commandContext(cmd), id)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.JSON() {
		return formatter.Success(e)
	}
	fmt.Fprintf(formatter.Writer, "ID:        %s\n", e.ID)
	fmt.Fprintf(formatter.Writer, "Image:     %s\n", e.ImageURI)
	fmt.Fprintf(formatter.Writer, "Address:   %s\n", e.Address)
	fmt.Fprintf(formatter.Writer, "Captured:  %s\n", formatTime(e))
	fmt.Fprintf(formatter.Writer, "Favorite:  %t\n", e.IsFavorite)
	if e.Description != nil {
		fmt.Fprintf(formatter.Writer, "Note:      %s\n", e.Note())
	}
	return nil
}

// NewFavoriteCommand creates the favorite command.
func NewFavoriteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "favorite <id>",
		Short:         "Toggle the favorite mark on a moment",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFavorite(rootOpts, args[0], cmd)
		},
	}
}

func runFavorite(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openSession(cmd, opts)
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	e, err := s.journal.ToggleFavorite(commandContext(cmd), id)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.JSON() {
		return formatter.Success(e)
	}
	if e.IsFavorite {
		fmt.Fprintf(formatter.Writer, "★ %s is now a favorite\n", e.ID)
	} else {
		fmt.Fprintf(formatter.Writer, "☆ %s is no longer a favorite\n", e.ID)
	}
	return nil
}

// NewNoteCommand creates the note command.
func NewNoteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> [text]",
		Short: "Set or clear the note on a moment",
		Long: `Set the note on a moment. Omitting the text, or passing only
whitespace, removes the note.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 2 {
				text = args[1]
			}
			return runNote(rootOpts, args[0], text, cmd)
		},
	}
}

func runNote(opts *RootOptions, id, text string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openSession(cmd, opts)
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	e, err := s.journal.UpdateNote(commandContext(cmd), id, text)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.JSON() {
		return formatter.Success(e)
	}
	if e.Description == nil {
		fmt.Fprintf(formatter.Writer, "✓ Cleared note on %s\n", e.ID)
	} else {
		fmt.Fprintf(formatter.Writer, "✓ Updated note on %s\n", e.ID)
	}
	return nil
}

// DeleteResult is the JSON payload of the delete command.
type DeleteResult struct {
	Removed string `json:"removed"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Aliases:       []string{"rm"},
		Short:         "Delete a moment",
		Long:          "Delete a moment. Deleting an id that does not exist succeeds.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
}

func runDelete(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openSession(cmd, opts)
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	if err := s.journal.Remove(commandContext(cmd), id); err != nil {
		return fail(formatter, err)
	}

	if formatter.JSON() {
		return formatter.Success(DeleteResult{Removed: id})
	}
	fmt.Fprintf(formatter.Writer, "✓ Deleted %s\n", id)
	return nil
}

// writeEntry prints one entry as a list row.
func writeEntry(w io.Writer, e entry.Entry) {
	mark := "☆"
	if e.IsFavorite {
		mark = "★"
	}
	fmt.Fprintf(w, "%s %s  %s  %s\n", mark, e.ID, formatTime(e), e.Address)
	fmt.Fprintf(w, "    %s\n", e.ImageURI)
	if e.Description != nil {
		fmt.Fprintf(w, "    %q\n", e.Note())
	}
}

func formatTime(e entry.Entry) string {
	return e.CapturedAt().Format(time.RFC3339)
}
