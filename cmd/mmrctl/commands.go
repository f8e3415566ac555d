// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	chainmmr "gitlab.com/jaxnet/mmrengine/node/mmr"
	"gitlab.com/jaxnet/mmrengine/types/mmr"
)

func (app *App) RootsCmd(c *cli.Context) error {
	if err := app.open(); err != nil {
		return cli.NewExitError(err, 1)
	}

	var (
		roots  chainmmr.Roots
		height = app.acc.Height()
		err    error
	)
	switch {
	case c.IsSet(flagHeight):
		height = c.Uint64(flagHeight)
		roots, err = app.acc.MMROnlyRootsAt(height)
	case c.Bool(flagMMROnly):
		roots, err = app.acc.MMROnlyRoots()
	default:
		roots, err = app.acc.Roots()
	}
	if err != nil {
		return cli.NewExitError(errors.Wrap(err, "unable to get roots"), 1)
	}
	printRoots(c.App.Writer, height, roots)
	return nil
}

func printRoots(w io.Writer, height uint64, roots chainmmr.Roots) {
	fmt.Fprintf(w, "height:      %d\n", height)
	for _, tree := range chainmmr.Trees {
		fmt.Fprintf(w, "%-12s %s\n", tree.String()+":", roots.Get(tree))
	}
}

func (app *App) StatsCmd(c *cli.Context) error {
	if err := app.open(); err != nil {
		return cli.NewExitError(err, 1)
	}
	stats, err := app.acc.Stats()
	if err != nil {
		return cli.NewExitError(errors.Wrap(err, "unable to collect stats"), 1)
	}

	if path := c.String(flagCSV); path != "" {
		if err = writeCSV(path, statRows(stats)); err != nil {
			return cli.NewExitError(err, 1)
		}
		return nil
	}
	printStats(c.App.Writer, stats)
	return nil
}

func printStats(w io.Writer, stats chainmmr.Stats) {
	fmt.Fprintf(w, "height: %d\n", stats.Height)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TREE\tLEAVES\tDELETED\tNODES\tCHECKPOINTS\tMERGED")
	for _, s := range stats.Trees {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			s.Tree, s.Leaves, s.Deleted, s.Nodes, s.Checkpoints, s.Merged)
	}
	tw.Flush()
}

func (app *App) ProofCmd(c *cli.Context) error {
	tree, err := chainmmr.ParseTree(c.String(flagTree))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if err = app.open(); err != nil {
		return cli.NewExitError(err, 1)
	}

	leafIndex, err := parseLeafIndex(c.Uint64(flagLeaf))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	file, err := buildProofFile(app.acc, tree, leafIndex)
	if err != nil {
		return cli.NewExitError(errors.Wrap(err, "unable to build proof"), 1)
	}

	out := c.App.Writer
	if path := c.String(flagOut); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return cli.NewExitError(errors.Wrap(err, "unable to create proof file"), 1)
		}
		defer f.Close()
		out = f
	}
	return writeProofFile(out, file)
}

// parseLeafIndex rejects indexes which don't fit the 32-bit leaf index of the accumulators.
func parseLeafIndex(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, errors.Wrapf(mmr.ErrIndexOutOfRange, "leaf index %d exceeds %d", v, uint32(math.MaxUint32))
	}
	return uint32(v), nil
}

func (app *App) VerifyCmd(c *cli.Context) error {
	f, err := os.Open(c.String(flagProof))
	if err != nil {
		return cli.NewExitError(errors.Wrap(err, "unable to open proof file"), 1)
	}
	defer f.Close()

	file, err := readProofFile(f)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	if rootStr := c.String(flagRoot); rootStr != "" {
		root, err := mmr.NewHashFromStr(rootStr)
		if err != nil {
			return cli.NewExitError(errors.Wrap(err, "invalid root"), 1)
		}
		hasher, err := mmr.HasherByName(app.config.Hasher)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		if err = file.Proof.Verify(hasher, file.Leaf, root); err != nil {
			return cli.NewExitError(err, 1)
		}
	} else {
		if c.IsSet(flagTree) {
			if file.Tree, err = chainmmr.ParseTree(c.String(flagTree)); err != nil {
				return cli.NewExitError(err, 1)
			}
		}
		if err = app.open(); err != nil {
			return cli.NewExitError(err, 1)
		}
		if err = app.acc.VerifyProof(file.Tree, file.Proof, file.Leaf); err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	fmt.Fprintf(c.App.Writer, "proof of %s leaf %d is valid\n", file.Tree, file.Proof.LeafIndex)
	return nil
}

func (app *App) DumpCmd(c *cli.Context) error {
	tree, err := chainmmr.ParseTree(c.String(flagTree))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	path := c.String(flagCSV)
	if path == "" {
		return cli.NewExitError(errors.New("csv output path is required"), 1)
	}
	if err = app.open(); err != nil {
		return cli.NewExitError(err, 1)
	}

	rows, err := leafRows(app.acc, tree, c.Uint64(flagOffset), c.Uint64(flagLimit))
	if err != nil {
		return cli.NewExitError(errors.Wrap(err, "unable to read leaves"), 1)
	}
	if err = writeCSV(path, rows); err != nil {
		return cli.NewExitError(err, 1)
	}
	app.logger.Info().Str("tree", tree.String()).Int("leaves", len(rows)).
		Str("path", path).Msg("Leaves exported")
	return nil
}

func (app *App) CheckpointsCmd(c *cli.Context) error {
	tree, err := chainmmr.ParseTree(c.String(flagTree))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if err = app.open(); err != nil {
		return cli.NewExitError(err, 1)
	}

	rows, err := checkpointRows(app.acc, tree, c.Uint64(flagOffset), c.Uint64(flagLimit))
	if err != nil {
		return cli.NewExitError(errors.Wrap(err, "unable to read checkpoints"), 1)
	}
	for _, row := range rows {
		fmt.Fprintf(c.App.Writer, "height %d: %d leaves added, %d leaves deleted\n",
			row.Height, row.Added, row.Deleted)
		if c.Bool(flagVerbose) {
			cp, err := app.acc.FetchCheckpoint(tree, row.Height)
			if err != nil {
				return cli.NewExitError(err, 1)
			}
			fmt.Fprintln(c.App.Writer, spew.Sdump(cp.NodesAdded(), cp.NodesDeleted().ToArray()))
		}
	}
	return nil
}

func (app *App) RewindCmd(c *cli.Context) error {
	if err := app.open(); err != nil {
		return cli.NewExitError(err, 1)
	}
	n := c.Uint64(flagBlocks)
	if err := app.acc.RewindBlocks(n); err != nil {
		return cli.NewExitError(errors.Wrapf(err, "unable to rewind %d blocks", n), 1)
	}
	roots, err := app.acc.Roots()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	app.logger.Info().Uint64("blocks", n).Uint64("height", app.acc.Height()).Msg("Accumulators rewound")
	printRoots(c.App.Writer, app.acc.Height(), roots)
	return nil
}

func (app *App) ValidateCmd(c *cli.Context) error {
	if err := app.open(); err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := app.acc.Validate(); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintf(c.App.Writer, "accumulators at height %d are consistent\n", app.acc.Height())
	return nil
}

func writeCSV(path string, rows interface{}) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return errors.Wrap(err, "unable to open csv file")
	}
	defer file.Close()

	return errors.Wrap(gocsv.MarshalFile(rows, file), "unable to write csv")
}
