package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jaxxstorm/csvers"
	"github.com/jaxxstorm/csvers/csemver"
	"github.com/jaxxstorm/csvers/internal/logging"
)

// Version will be set by build process
var Version = "dev"

const name = "csvers"

type CLI struct {
	Commitish       string   `arg:"" optional:"" help:"Git commitish to analyze or version string to convert (default: HEAD)"`
	Format          string   `short:"f" default:"semver" enum:"normalized,semver,semverwithmarker,nuget,file,informational" help:"Output format"`
	Repo            string   `short:"r" help:"Repository path (default: current directory)"`
	Options         string   `short:"c" type:"path" help:"YAML options file"`
	Branch          string   `short:"b" help:"Branch the commit is built from (default: the branch HEAD points to)"`
	StartingVersion string   `help:"Ignore tags below this version (e.g., 'v2.0.0')"`
	TagPattern      string   `help:"Regex pattern to filter tags (e.g., '^sdk/')"`
	Branches        []string `help:"Compute the tip of these branches instead of one commit" sep:","`
	AllBranches     bool     `help:"Compute the tip of every branch configured in the options file"`
	JSON            bool     `short:"j" help:"Output as JSON"`
	LogLevel        string   `help:"Log level (debug, info, warn, error); defaults to LOG_LEVEL"`
	ShowVersion     bool     `help:"Show version information" name:"version"`
}

func main() {
	var cli CLI

	kong.Parse(&cli,
		kong.Name(name),
		kong.Description("Calculate CSemVer versions from Git repository tags or convert version strings"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	err := cli.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (c *CLI) Run() error {
	// Handle version flag
	if c.ShowVersion {
		return c.showVersion()
	}

	// Check if the input looks like a version string to convert
	if c.Commitish != "" && isVersionString(c.Commitish) {
		return c.convertVersion()
	}

	if len(c.Branches) > 0 || c.AllBranches {
		return c.calculateBranches()
	}

	// Otherwise, calculate from git repository
	return c.calculateVersion()
}

// logger writes JSON records when the output itself is JSON.
func (c *CLI) logger() *slog.Logger {
	if c.JSON {
		return logging.NewStructuredLogger(name, Version, c.LogLevel)
	}
	return logging.NewTextLogger(os.Stderr, name, Version, c.LogLevel)
}

func (c *CLI) showVersion() error {
	versionInfo := map[string]string{
		"version": Version,
		"name":    name,
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(versionInfo)
	}

	fmt.Printf("%s version %s\n", name, Version)
	return nil
}

func (c *CLI) convertVersion() error {
	versions, err := csvers.Convert(c.Commitish)
	if err != nil {
		return fmt.Errorf("converting version: %w", err)
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(versions)
	}

	fmt.Println(getVersionOutput(versions, c.Format))
	return nil
}

// options merges the options file with the command line flags.
func (c *CLI) options() (csvers.Options, error) {
	var opts csvers.Options
	if c.Options != "" {
		var err error
		if opts, err = csvers.LoadOptionsFile(c.Options); err != nil {
			return opts, err
		}
	}
	if c.StartingVersion != "" {
		opts.StartingVersion = c.StartingVersion
	}
	if c.TagPattern != "" {
		opts.TagPattern = c.TagPattern
	}
	opts.Branch = c.Branch
	opts.Logger = c.logger()
	return opts, nil
}

func (c *CLI) repoPath() (string, error) {
	if c.Repo != "" {
		return c.Repo, nil
	}
	repoPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return repoPath, nil
}

func (c *CLI) calculateVersion() error {
	commitish := "HEAD"
	if c.Commitish != "" {
		commitish = c.Commitish
	}

	opts, err := c.options()
	if err != nil {
		return err
	}
	repoPath, err := c.repoPath()
	if err != nil {
		return err
	}

	// Try to open repository, but handle gracefully if it's not a git repo
	repo, err := csvers.OpenRepository(repoPath)
	if err != nil {
		opts.Logger.Debug("not a git repository, using fallback version", "path", repoPath, "error", err)
		versions := csvers.FallbackVersions()

		if c.JSON {
			return json.NewEncoder(os.Stdout).Encode(versions)
		}

		fmt.Println(getVersionOutput(versions, c.Format))
		return nil
	}

	opts.Repository = repo
	opts.Commitish = plumbing.Revision(commitish)

	info, err := csvers.Calculate(opts)
	if err != nil {
		return fmt.Errorf("calculating version: %w", err)
	}
	for _, w := range info.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	if c.JSON {
		if err := json.NewEncoder(os.Stdout).Encode(info); err != nil {
			return err
		}
		return info.Err()
	}

	if info.HasError() {
		fmt.Fprintln(os.Stderr, info.Errors.Error())
		return info.Err()
	}

	fmt.Println(getVersionOutput(info.Formats(), c.Format))
	return nil
}

func (c *CLI) calculateBranches() error {
	opts, err := c.options()
	if err != nil {
		return err
	}
	repoPath, err := c.repoPath()
	if err != nil {
		return err
	}
	repo, err := csvers.OpenRepository(repoPath)
	if err != nil {
		return fmt.Errorf("opening repository: %w", err)
	}
	opts.Repository = repo
	opts.Branch = ""

	infos, err := csvers.CalculateBranches(context.Background(), opts, c.Branches)
	if err != nil {
		return err
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(infos)
	}

	branches := make([]string, 0, len(infos))
	for b := range infos {
		branches = append(branches, b)
	}
	sort.Strings(branches)
	failed := 0
	for _, b := range branches {
		info := infos[b]
		if info.HasError() {
			failed++
			fmt.Printf("%s: error\n", b)
			fmt.Fprintf(os.Stderr, "%s:\n%s\n", b, info.Errors.Error())
			continue
		}
		fmt.Printf("%s: %s\n", b, getVersionOutput(info.Formats(), c.Format))
	}
	if failed > 0 {
		return fmt.Errorf("%d branch(es) have no valid version", failed)
	}
	return nil
}

// isVersionString checks if the input looks like a version string rather than a git reference
func isVersionString(input string) bool {
	// Simple heuristic: if it contains dots and starts with a number or 'v', treat as version
	if strings.Contains(input, ".") {
		trimmed := strings.TrimPrefix(input, "v")
		if len(trimmed) > 0 && (trimmed[0] >= '0' && trimmed[0] <= '9') {
			// Check if it has at least 2 dots (x.y.z format)
			parts := strings.Split(trimmed, ".")
			return len(parts) >= 3
		}
	}
	return false
}

// getVersionOutput picks one rendering. Format names are those of
// csemver.ParseFormat plus "informational"; unknown names give SemVer.
func getVersionOutput(versions *csvers.VersionFormats, format string) string {
	if strings.EqualFold(format, "informational") {
		if versions.Informational != "" {
			return versions.Informational
		}
		return versions.SemVer
	}
	f, err := csemver.ParseFormat(format)
	if err != nil {
		return versions.SemVer
	}
	switch f {
	case csemver.Normalized:
		return versions.Normalized
	case csemver.SemVerWithMarker:
		return versions.SemVerWithMarker
	case csemver.NuGetV2:
		return versions.NuGet
	case csemver.FileVersion:
		return versions.FileVersion
	default:
		return versions.SemVer
	}
}
