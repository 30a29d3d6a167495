// Package hostctx implements githook's host object model: the fixed set of
// context handles a HostEnv populates before evaluation (spec.md §6
// "HostEnv contract") and that hook scripts read through `git.*`, `env.*`,
// and `http.*` property/method access.
//
// Each type here is a plain, immutable-after-construction struct satisfying
// value.HostObject via a property table built once in its constructor,
// following spec.md §9's "closed tagged-variant value type plus a
// compile-time-known property/method table per variant" guidance and the
// original Rust implementation's contexts/mod.rs (GitContext,
// FilesCollection, DiffCollection, MergeContext, BranchInfo, CommitInfo,
// AuthorInfo, RemoteInfo, DiffStats, FileContext, PathContext).
package hostctx

import (
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/scholzdev/githook/value"
)

// props is a small property-name -> Value lookup table shared by every
// handle's Property method.
type props map[string]value.Value

func (p props) lookup(name string) (value.Value, bool) {
	v, ok := p[name]
	return v, ok
}

// methods is a small method-name -> value.Method lookup table shared by
// every handle's Method dispatch.
type methods map[string]value.Method

func (m methods) lookup(name string) (value.Method, bool) {
	fn, ok := m[name]
	return fn, ok
}

func stringArray(ss []string) value.Array {
	out := make(value.Array, len(ss))
	for i, s := range ss {
		out[i] = value.String(s)
	}
	return out
}

// AuthorInfo backs `git.author.*`: the author of the last commit.
type AuthorInfo struct {
	Name  string
	Email string
	props props
}

// NewAuthorInfo constructs an AuthorInfo handle.
func NewAuthorInfo(name, email string) *AuthorInfo {
	a := &AuthorInfo{Name: name, Email: email}
	a.props = props{
		"name":  value.String(name),
		"email": value.String(email),
	}
	return a
}

func (a *AuthorInfo) TypeName() string                  { return "AuthorInfo" }
func (a *AuthorInfo) Property(n string) (value.Value, bool) { return a.props.lookup(n) }
func (a *AuthorInfo) Method(string) (value.Method, bool)    { return nil, false }
func (a *AuthorInfo) ToString() string                      { return a.Name + " <" + a.Email + ">" }

// RemoteInfo backs `git.remote.*`: the repository's configured remote.
type RemoteInfo struct {
	Name string
	URL  string
	props props
}

// NewRemoteInfo constructs a RemoteInfo handle.
func NewRemoteInfo(name, url string) *RemoteInfo {
	r := &RemoteInfo{Name: name, URL: url}
	r.props = props{
		"name": value.String(name),
		"url":  value.String(url),
	}
	return r
}

func (r *RemoteInfo) TypeName() string                  { return "RemoteInfo" }
func (r *RemoteInfo) Property(n string) (value.Value, bool) { return r.props.lookup(n) }
func (r *RemoteInfo) Method(string) (value.Method, bool)    { return nil, false }

// DiffStats backs `git.diff.stats`: the summary line count of the current
// diff.
type DiffStats struct {
	FilesChanged int
	Insertions   int
	Deletions    int
	props        props
}

// NewDiffStats constructs a DiffStats handle.
func NewDiffStats(filesChanged, insertions, deletions int) *DiffStats {
	d := &DiffStats{FilesChanged: filesChanged, Insertions: insertions, Deletions: deletions}
	d.props = props{
		"files_changed": value.Number(filesChanged),
		"insertions":    value.Number(insertions),
		"deletions":     value.Number(deletions),
	}
	return d
}

func (d *DiffStats) TypeName() string                  { return "DiffStats" }
func (d *DiffStats) Property(n string) (value.Value, bool) { return d.props.lookup(n) }
func (d *DiffStats) Method(string) (value.Method, bool)    { return nil, false }

// CommitInfo backs `git.commit.*`: the last commit on HEAD.
type CommitInfo struct {
	Hash    string
	Message string
	Author  *AuthorInfo
	props   props
}

// NewCommitInfo constructs a CommitInfo handle.
func NewCommitInfo(hash, message string, author *AuthorInfo) *CommitInfo {
	c := &CommitInfo{Hash: hash, Message: message, Author: author}
	c.props = props{
		"hash":    value.String(hash),
		"message": value.String(message),
	}
	if author != nil {
		c.props["author"] = value.Handle{Object: author}
	}
	return c
}

func (c *CommitInfo) TypeName() string                  { return "CommitInfo" }
func (c *CommitInfo) Property(n string) (value.Value, bool) { return c.props.lookup(n) }
func (c *CommitInfo) Method(string) (value.Method, bool)    { return nil, false }
func (c *CommitInfo) ToString() string                      { return c.Hash[:min(7, len(c.Hash))] + " " + c.Message }

// BranchInfo backs `git.branch`: the current checked-out branch.
type BranchInfo struct {
	Name     string
	Upstream string
	props    props
}

// NewBranchInfo constructs a BranchInfo handle.
func NewBranchInfo(name, upstream string) *BranchInfo {
	b := &BranchInfo{Name: name, Upstream: upstream}
	b.props = props{
		"name":     value.String(name),
		"upstream": value.String(upstream),
	}
	return b
}

func (b *BranchInfo) TypeName() string                  { return "BranchInfo" }
func (b *BranchInfo) Property(n string) (value.Value, bool) { return b.props.lookup(n) }
func (b *BranchInfo) Method(string) (value.Method, bool)    { return nil, false }
func (b *BranchInfo) ToString() string                      { return b.Name }

// MergeContext backs `git.merge.*`, populated only while evaluating a
// merge hook.
type MergeContext struct {
	Source string
	Target string
	props  props
}

// NewMergeContext constructs a MergeContext handle.
func NewMergeContext(source, target string) *MergeContext {
	m := &MergeContext{Source: source, Target: target}
	m.props = props{
		"source": value.String(source),
		"target": value.String(target),
	}
	return m
}

func (m *MergeContext) TypeName() string                  { return "MergeContext" }
func (m *MergeContext) Property(n string) (value.Value, bool) { return m.props.lookup(n) }
func (m *MergeContext) Method(string) (value.Method, bool)    { return nil, false }

// FilesCollection backs `git.files.*`, grouping paths by Git status. It is
// iterable over its `all` list (spec.md §4.3 "FilesCollection is iterable
// over paths").
//
// Sizes holds the on-disk byte count for every path in All, keyed by path,
// populated by the Git adapter via os.Stat; a path absent from Sizes (or
// mapped to -1) is untracked on disk, matching FileContext's own
// -1-means-untracked convention. The file() method turns a plain path
// string into the FileContext handle a script needs for `.size`/
// `human_size()` access (spec.md §4.3's "re-wrapped for .size/.path
// access").
type FilesCollection struct {
	Staged, All, Modified, Added, Deleted, Unstaged []string
	Sizes                                           map[string]int64
	props                                           props
	methods                                         methods
}

// NewFilesCollection constructs a FilesCollection handle. sizes maps a path
// in all to its size in bytes; a missing entry resolves to -1 (untracked).
func NewFilesCollection(staged, all, modified, added, deleted, unstaged []string, sizes map[string]int64) *FilesCollection {
	f := &FilesCollection{Staged: staged, All: all, Modified: modified, Added: added, Deleted: deleted, Unstaged: unstaged, Sizes: sizes}
	f.props = props{
		"staged":   stringArray(staged),
		"all":      stringArray(all),
		"modified": stringArray(modified),
		"added":    stringArray(added),
		"deleted":  stringArray(deleted),
		"unstaged": stringArray(unstaged),
	}
	f.methods = methods{
		"file": func(args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return nil, &value.TypeError{Op: "files.file", Left: "arity mismatch"}
			}
			path, ok := args[0].(value.String)
			if !ok {
				return nil, &value.TypeError{Op: "files.file", Left: args[0].Kind(), Right: "string"}
			}
			size, known := f.Sizes[string(path)]
			if !known {
				size = -1
			}
			return value.Handle{Object: NewFileContext(string(path), size)}, nil
		},
	}
	return f
}

func (f *FilesCollection) TypeName() string                  { return "FilesCollection" }
func (f *FilesCollection) Property(n string) (value.Value, bool) { return f.props.lookup(n) }
func (f *FilesCollection) Method(n string) (value.Method, bool)  { return f.methods.lookup(n) }
func (f *FilesCollection) Iterate() []value.Value                { return stringArray(f.All) }

// DiffCollection backs `git.diff.*`: added/removed lines from the current
// diff, computed upstream by a go-diff line diff of each staged file's HEAD
// and index contents. Stats exposes
// the same diff's file/insertion/deletion counts as a DiffStats handle
// (`git.diff.stats.files_changed` etc.).
type DiffCollection struct {
	AddedLines, RemovedLines []string
	Stats                    *DiffStats
	props                    props
}

// NewDiffCollection constructs a DiffCollection handle. filesChanged is the
// number of staged files the Git adapter found a non-empty diff for.
func NewDiffCollection(added, removed []string, filesChanged int) *DiffCollection {
	stats := NewDiffStats(filesChanged, len(added), len(removed))
	d := &DiffCollection{AddedLines: added, RemovedLines: removed, Stats: stats}
	d.props = props{
		"added_lines":   stringArray(added),
		"removed_lines": stringArray(removed),
		"stats":         value.Handle{Object: stats},
	}
	return d
}

func (d *DiffCollection) TypeName() string                  { return "DiffCollection" }
func (d *DiffCollection) Property(n string) (value.Value, bool) { return d.props.lookup(n) }
func (d *DiffCollection) Method(string) (value.Method, bool)    { return nil, false }

// GitContext backs the top-level `git` binding.
type GitContext struct {
	Branch *BranchInfo
	Files  *FilesCollection
	Diff   *DiffCollection
	Commit *CommitInfo
	Author *AuthorInfo
	Remote *RemoteInfo
	Merge  *MergeContext // nil outside merge hooks
	props  props
}

// NewGitContext constructs a GitContext handle wrapping the child handles
// populated by the CLI's Git adapter before evaluation begins.
func NewGitContext(branch *BranchInfo, files *FilesCollection, diff *DiffCollection, commit *CommitInfo, author *AuthorInfo, remote *RemoteInfo, merge *MergeContext) *GitContext {
	g := &GitContext{Branch: branch, Files: files, Diff: diff, Commit: commit, Author: author, Remote: remote, Merge: merge}
	g.props = props{}
	if branch != nil {
		g.props["branch"] = value.Handle{Object: branch}
	}
	if files != nil {
		g.props["files"] = value.Handle{Object: files}
	}
	if diff != nil {
		g.props["diff"] = value.Handle{Object: diff}
	}
	if commit != nil {
		g.props["commit"] = value.Handle{Object: commit}
	}
	if author != nil {
		g.props["author"] = value.Handle{Object: author}
	}
	if remote != nil {
		g.props["remote"] = value.Handle{Object: remote}
	}
	if merge != nil {
		g.props["merge"] = value.Handle{Object: merge}
	}
	return g
}

func (g *GitContext) TypeName() string                  { return "GitContext" }
func (g *GitContext) Property(n string) (value.Value, bool) { return g.props.lookup(n) }
func (g *GitContext) Method(string) (value.Method, bool)    { return nil, false }

// PathContext backs the value returned by FileContext.path: a path's
// directory/basename/extension decomposition.
type PathContext struct {
	Raw   string
	props props
}

// NewPathContext constructs a PathContext handle for path p.
func NewPathContext(p string) *PathContext {
	pc := &PathContext{Raw: p}
	ext := strings.TrimPrefix(filepath.Ext(p), ".")
	pc.props = props{
		"raw":       value.String(p),
		"dirname":   value.String(filepath.Dir(p)),
		"basename":  value.String(filepath.Base(p)),
		"extension": value.String(ext),
	}
	return pc
}

func (p *PathContext) TypeName() string                  { return "PathContext" }
func (p *PathContext) Property(n string) (value.Value, bool) { return p.props.lookup(n) }
func (p *PathContext) Method(string) (value.Method, bool)    { return nil, false }
func (p *PathContext) ToString() string                      { return p.Raw }

// FileContext backs a single file reference, e.g. one element produced by
// iterating `git.files.staged` and then re-wrapped for `.size`/`.path`
// access. SizeBytes is -1 when the file is untracked on disk (e.g. deleted
// in the working tree) and human_size() reports "0 B" in that case.
type FileContext struct {
	Path      string
	SizeBytes int64
	props     props
	methods   methods
}

// NewFileContext constructs a FileContext handle for path with the given
// size in bytes (-1 if unknown/deleted).
func NewFileContext(path string, sizeBytes int64) *FileContext {
	f := &FileContext{Path: path, SizeBytes: sizeBytes}
	size := sizeBytes
	if size < 0 {
		size = 0
	}
	f.props = props{
		"path": value.Handle{Object: NewPathContext(path)},
		"size": value.Number(float64(size)),
	}
	f.methods = methods{
		"human_size": func(args []value.Value) (value.Value, error) {
			return value.String(humanize.Bytes(uint64(size))), nil
		},
	}
	return f
}

func (f *FileContext) TypeName() string                  { return "FileContext" }
func (f *FileContext) Property(n string) (value.Value, bool) { return f.props.lookup(n) }
func (f *FileContext) Method(n string) (value.Method, bool)  { return f.methods.lookup(n) }
func (f *FileContext) ToString() string                      { return f.Path }

// EnvContext backs the top-level `env` binding: process environment
// variables, accessed as `env.NAME` (spec.md §6).
type EnvContext struct {
	vars  map[string]string
	props props
}

// NewEnvContext constructs an EnvContext handle from a captured
// environment snapshot.
func NewEnvContext(vars map[string]string) *EnvContext {
	e := &EnvContext{vars: vars}
	e.props = make(props, len(vars))
	for k, v := range vars {
		e.props[k] = value.String(v)
	}
	return e
}

func (e *EnvContext) TypeName() string { return "EnvContext" }

func (e *EnvContext) Property(n string) (value.Value, bool) {
	v, ok := e.props.lookup(n)
	if !ok {
		// Undeclared environment variables read as empty string rather
		// than NoSuchProperty, since env is an open map, not a fixed
		// struct (spec.md §6: "env: map<string, string>").
		return value.String(""), true
	}
	return v, true
}

func (e *EnvContext) Method(string) (value.Method, bool) { return nil, false }

// HttpResponseContext backs the value returned by `http.get(url)`.
type HttpResponseContext struct {
	Status int
	Body   string
	props  props
}

// NewHttpResponseContext constructs an HttpResponseContext handle.
func NewHttpResponseContext(status int, body string) *HttpResponseContext {
	h := &HttpResponseContext{Status: status, Body: body}
	h.props = props{
		"status": value.Number(status),
		"body":   value.String(body),
	}
	return h
}

func (h *HttpResponseContext) TypeName() string                  { return "HttpResponseContext" }
func (h *HttpResponseContext) Property(n string) (value.Value, bool) { return h.props.lookup(n) }
func (h *HttpResponseContext) Method(string) (value.Method, bool)    { return nil, false }

// HttpFetcher is implemented by whatever HTTP client backs `http.get`; the
// CLI driver wires in a real client, tests wire in a stub.
type HttpFetcher interface {
	Get(url string) (status int, body string, err error)
}

// HttpContext backs the optional top-level `http` binding (spec.md §6:
// "optional HTTP client facade exposing get(url) -> HttpResponseContext").
type HttpContext struct {
	fetcher HttpFetcher
	methods methods
}

// NewHttpContext constructs an HttpContext handle wrapping fetcher.
func NewHttpContext(fetcher HttpFetcher) *HttpContext {
	h := &HttpContext{fetcher: fetcher}
	h.methods = methods{
		"get": func(args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return nil, &value.TypeError{Op: "http.get", Left: "arity mismatch"}
			}
			url, ok := args[0].(value.String)
			if !ok {
				return nil, &value.TypeError{Op: "http.get", Left: args[0].Kind(), Right: "string"}
			}
			status, body, err := h.fetcher.Get(string(url))
			if err != nil {
				return nil, err
			}
			return value.Handle{Object: NewHttpResponseContext(status, body)}, nil
		},
	}
	return h
}

func (h *HttpContext) TypeName() string                  { return "HttpContext" }
func (h *HttpContext) Property(string) (value.Value, bool) { return nil, false }
func (h *HttpContext) Method(n string) (value.Method, bool) { return h.methods.lookup(n) }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
