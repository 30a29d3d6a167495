// Package gitadapter populates hostctx.GitContext by shelling out to the
// `git` binary (spec.md §6 "HostEnv contract", SPEC_FULL.md §5 "Git
// adapter"). It is a collaborator, never imported by eval: the core only
// ever sees the hostctx.GitContext value this package produces.
//
// Grounded on other_examples' wonton git.go: Open resolves the repository
// root via `git rev-parse --show-toplevel`, and each accessor
// below runs one focused git subcommand and parses its output, the same
// one-subcommand-per-helper shape as that package's Status/Log/Diff
// methods.
package gitadapter

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/scholzdev/githook/hostctx"
)

// runner executes `git <args...>` in a working directory and returns
// trimmed stdout. Swappable in tests so gitadapter's parsing logic can be
// exercised without a live git process.
type runner func(dir string, args ...string) (string, error)

func execRunner(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// statSizer reports path's size in bytes relative to the repository root,
// or -1 if it can't be stat'd (deleted in the working tree, outside the
// tree, a symlink to nowhere). Swappable in tests the same way runner is.
type statSizer func(relPath string) int64

// Repository is a read-only handle on a git working tree.
type Repository struct {
	root string
	run  runner
	stat statSizer
}

// Open resolves path to its repository root via `git rev-parse
// --show-toplevel`, following the wonton git.go Open pattern.
func Open(path string) (*Repository, error) {
	return openWith(path, execRunner)
}

func openWith(path string, run runner) (*Repository, error) {
	out, err := run(path, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	root := strings.TrimSpace(out)
	return &Repository{root: root, run: run, stat: osStatSizer(root)}, nil
}

// osStatSizer builds a statSizer that resolves relPath against root on the
// real filesystem via os.Stat.
func osStatSizer(root string) statSizer {
	return func(relPath string) int64 {
		info, err := os.Stat(filepath.Join(root, relPath))
		if err != nil {
			return -1
		}
		return info.Size()
	}
}

// Populate opens repoRoot and builds a fully wired hostctx.GitContext
// (SPEC_FULL.md §5). Individual sub-lookups that fail for benign reasons
// (no remote configured, not inside a merge, no commits yet) degrade to a
// nil child handle rather than failing the whole populate.
func Populate(repoRoot string) (*hostctx.GitContext, error) {
	repo, err := Open(repoRoot)
	if err != nil {
		return nil, err
	}
	return repo.snapshot()
}

func (r *Repository) snapshot() (*hostctx.GitContext, error) {
	branch := r.branchInfo()
	files, err := r.filesCollection()
	if err != nil {
		return nil, err
	}
	diff, err := r.diffCollection(files.Staged)
	if err != nil {
		return nil, err
	}
	author := r.lastAuthor()
	commit := r.lastCommit(author)
	remote := r.remoteInfo()
	merge := r.mergeContext(branch)

	return hostctx.NewGitContext(branch, files, diff, commit, author, remote, merge), nil
}

// branchInfo resolves the current branch name and its upstream, if any.
// Detached HEAD and missing upstream both degrade to empty strings rather
// than errors.
func (r *Repository) branchInfo() *hostctx.BranchInfo {
	name, err := r.run(r.root, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		name = ""
	}
	upstream, err := r.run(r.root, "rev-parse", "--abbrev-ref", "@{u}")
	if err != nil {
		upstream = ""
	}
	return hostctx.NewBranchInfo(name, upstream)
}

// filesCollection gathers staged/unstaged file lists via `git diff
// --name-status`: `--cached` (HEAD against the index) for staged, and the
// plain form (index against the working tree) for unstaged.
func (r *Repository) filesCollection() (*hostctx.FilesCollection, error) {
	stagedOut, err := r.run(r.root, "diff", "--cached", "--name-status")
	if err != nil {
		return nil, err
	}
	unstagedOut, err := r.run(r.root, "diff", "--name-status")
	if err != nil {
		return nil, err
	}

	stagedPaths, stagedAdded, stagedModified, stagedDeleted := parseNameStatus(stagedOut)
	unstagedPaths, _, unstagedModified, unstagedDeleted := parseNameStatus(unstagedOut)

	all := dedupSorted(append(append([]string{}, stagedPaths...), unstagedPaths...))
	modified := dedupSorted(append(append([]string{}, stagedModified...), unstagedModified...))
	deleted := dedupSorted(append(append([]string{}, stagedDeleted...), unstagedDeleted...))

	sizes := r.fileSizes(all)

	return hostctx.NewFilesCollection(stagedPaths, all, modified, stagedAdded, deleted, unstagedPaths, sizes), nil
}

// fileSizes stats every path in paths relative to the repository root,
// backing `files.file(path).size`/`human_size()`. A path that can't be
// stat'd (deleted in the working tree) is simply omitted; FilesCollection
// treats a missing entry as untracked (-1).
func (r *Repository) fileSizes(paths []string) map[string]int64 {
	sizes := make(map[string]int64, len(paths))
	for _, p := range paths {
		if size := r.stat(p); size >= 0 {
			sizes[p] = size
		}
	}
	return sizes
}

// parseNameStatus parses `git diff --name-status` output (tab-separated
// status-code/path lines, with renames carrying an old and new path) into
// (paths, added, modified, deleted).
func parseNameStatus(out string) (paths, added, modified, deleted []string) {
	if out == "" {
		return nil, nil, nil, nil
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		code, path := fields[0], fields[len(fields)-1]
		paths = append(paths, path)
		switch code[0] {
		case 'A':
			added = append(added, path)
		case 'D':
			deleted = append(deleted, path)
		default:
			// M, R*, C*, T all read as "modified" for hook purposes.
			modified = append(modified, path)
		}
	}
	return paths, added, modified, deleted
}

func dedupSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// diffCollection builds the added/removed line lists for every staged
// path, diffing the HEAD blob against the staged (index) blob line by
// line via go-diff's diffmatchpatch, the same DiffLinesToRunes ->
// DiffMainRunes -> DiffCharsToLines pipeline used elsewhere in the pack to
// turn a line-mode diff back into readable line text.
func (r *Repository) diffCollection(staged []string) (*hostctx.DiffCollection, error) {
	var added, removed []string
	filesChanged := 0
	dmp := diffmatchpatch.New()

	for _, path := range staged {
		before, _ := r.run(r.root, "show", "HEAD:"+path)
		after, _ := r.run(r.root, "show", ":"+path)
		if before == after {
			continue
		}
		filesChanged++

		srcRunes, dstRunes, lineArray := dmp.DiffLinesToRunes(before, after)
		diffs := dmp.DiffMainRunes(srcRunes, dstRunes, false)
		diffs = dmp.DiffCharsToLines(diffs, lineArray)

		for _, d := range diffs {
			lines := splitNonEmptyLines(d.Text)
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				added = append(added, lines...)
			case diffmatchpatch.DiffDelete:
				removed = append(removed, lines...)
			}
		}
	}

	return hostctx.NewDiffCollection(added, removed, filesChanged), nil
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// lastAuthor resolves HEAD's author, used both for `git.author` and
// embedded in `git.commit.author`. Returns nil before the first commit.
func (r *Repository) lastAuthor() *hostctx.AuthorInfo {
	out, err := r.run(r.root, "log", "-1", "--format=%an\x1f%ae")
	if err != nil || out == "" {
		return nil
	}
	parts := strings.SplitN(out, "\x1f", 2)
	if len(parts) != 2 {
		return nil
	}
	return hostctx.NewAuthorInfo(parts[0], parts[1])
}

// lastCommit resolves HEAD's hash/subject, reusing author for the
// embedded `git.commit.author` handle.
func (r *Repository) lastCommit(author *hostctx.AuthorInfo) *hostctx.CommitInfo {
	out, err := r.run(r.root, "log", "-1", "--format=%H\x1f%s")
	if err != nil || out == "" {
		return nil
	}
	parts := strings.SplitN(out, "\x1f", 2)
	if len(parts) != 2 {
		return nil
	}
	return hostctx.NewCommitInfo(parts[0], parts[1], author)
}

// remoteInfo resolves the "origin" remote's URL. Repos with no remote
// configured yield a nil handle rather than an error.
func (r *Repository) remoteInfo() *hostctx.RemoteInfo {
	url, err := r.run(r.root, "remote", "get-url", "origin")
	if err != nil || url == "" {
		return nil
	}
	return hostctx.NewRemoteInfo("origin", url)
}

// mergeContext detects an in-progress merge via MERGE_HEAD and resolves
// its source branch name, nil outside a merge (spec.md §6: "Merge is nil
// outside merge hooks").
func (r *Repository) mergeContext(target *hostctx.BranchInfo) *hostctx.MergeContext {
	if _, err := r.run(r.root, "rev-parse", "-q", "--verify", "MERGE_HEAD"); err != nil {
		return nil
	}
	source, err := r.run(r.root, "name-rev", "--name-only", "MERGE_HEAD")
	if err != nil || source == "" {
		source = "MERGE_HEAD"
	}
	targetName := ""
	if target != nil {
		targetName = target.Name
	}
	return hostctx.NewMergeContext(source, targetName)
}
