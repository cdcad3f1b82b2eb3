package analysis

// Context is the read-only view of a job passed to each stage. Prior stage
// outputs are reachable only through Output, so no stage can observe a
// dependency's result before the pipeline records it.
type Context struct {
	query        string
	artifactRef  string
	documentText string
	outputs      map[string]StageResult
}

// NewContext builds the pipeline context for one run.
func NewContext(query, artifactRef, documentText string) Context {
	return Context{
		query:        query,
		artifactRef:  artifactRef,
		documentText: documentText,
	}
}

// Query returns the submitter's analysis query.
func (c Context) Query() string { return c.query }

// ArtifactRef returns the staged document reference.
func (c Context) ArtifactRef() string { return c.artifactRef }

// DocumentText returns the extracted document text.
func (c Context) DocumentText() string { return c.documentText }

// Output returns a prior stage's result when it has been recorded.
func (c Context) Output(stage string) (StageResult, bool) {
	result, ok := c.outputs[stage]
	return result, ok
}

// withOutput returns a copy of the context with one more recorded result.
// The outputs map is copied so stages holding the old context never see
// later writes.
func (c Context) withOutput(result StageResult) Context {
	next := make(map[string]StageResult, len(c.outputs)+1)
	for name, out := range c.outputs {
		next[name] = out
	}
	next[result.Stage] = result
	c.outputs = next
	return c
}
