package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func suggestionNames(similars []suggestion) []string {
	names := []string{}
	for _, similar := range similars {
		names = append(names, similar.name)
	}

	return names
}

func TestFindSimilarCommands(t *testing.T) {
	cmds := []cli.Command{
		{Name: "stat"},
		{Name: "cat"},
		{Name: "apply"},
		{Name: "pack"},
		{Name: "bench"},
	}

	require.Equal(t, []string{"stat"}, suggestionNames(findSimilarCommands("stats", cmds)))
	require.Equal(t, []string{"apply"}, suggestionNames(findSimilarCommands("aply", cmds)))
	require.Equal(t, []string{"apply"}, suggestionNames(findSimilarCommands("dd", cmds)))
	require.Equal(t, []string{"pack"}, suggestionNames(findSimilarCommands("gzip", cmds)))
	require.Empty(t, findSimilarCommands("xyzzy", cmds))
}

func TestSimilarCommandsOrder(t *testing.T) {
	cmds := []cli.Command{
		{Name: "cats"},
		{Name: "cat"},
	}

	names := suggestionNames(findSimilarCommands("cat", cmds))
	require.Equal(t, []string{"cat", "cats"}, names)
}
