package rdf

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNTriples(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		wantErr  bool
	}{
		{
			name: "simple triple",
			input: `<http://example.org/s> <http://example.org/p> <http://example.org/o> .
`,
			expected: 1,
		},
		{
			name: "multiple triples",
			input: `<http://example.org/s1> <http://example.org/p1> "literal1" .
<http://example.org/s2> <http://example.org/p2> "literal2"^^<http://www.w3.org/2001/XMLSchema#string> .
<http://example.org/s3> <http://example.org/p3> "hello"@en .
`,
			expected: 3,
		},
		{
			name: "blank nodes",
			input: `_:b1 <http://example.org/p> "value" .
<http://example.org/s> <http://example.org/p> _:b2 .
`,
			expected: 2,
		},
		{
			name: "comments and blank lines",
			input: `# leading comment
<http://example.org/s> <http://example.org/p> <http://example.org/o> .

# trailing comment
`,
			expected: 1,
		},
		{
			name: "numeric literals",
			input: `<http://example.org/s> <http://example.org/p> 42 .
<http://example.org/s2> <http://example.org/p2> 3.14 .
`,
			expected: 2,
		},
		{
			name: "escaped quote in literal",
			input: `<http://example.org/s> <http://example.org/p> "say \"hi\"" .
`,
			expected: 1,
		},
		{
			name:    "missing dot",
			input:   `<http://example.org/s> <http://example.org/p> <http://example.org/o>`,
			wantErr: true,
		},
		{
			name:    "unclosed IRI",
			input:   `<http://example.org/s <http://example.org/p> <http://example.org/o> .`,
			wantErr: true,
		},
		{
			name:    "unclosed literal",
			input:   `<http://example.org/s> <http://example.org/p> "oops .`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(tt.input)

			var triples []*TripleString
			var err error
			for {
				var ts *TripleString
				ts, err = parser.Next()
				if err != nil {
					break
				}
				triples = append(triples, ts)
			}

			if tt.wantErr {
				require.Error(t, err)
				require.NotErrorIs(t, err, io.EOF)
				return
			}
			require.ErrorIs(t, err, io.EOF)
			require.Len(t, triples, tt.expected)
		})
	}
}

func TestParserKeepsSurfaceForm(t *testing.T) {
	input := `<http://example.org/a> <http://example.org/p> "v\"x"@en-GB .
`
	parser := NewParser(input)
	ts, err := parser.Next()
	require.NoError(t, err)

	require.Equal(t, "<http://example.org/a>", ts.Subject)
	require.Equal(t, "<http://example.org/p>", ts.Predicate)
	require.Equal(t, `"v\"x"@en-GB`, ts.Object)
}

func TestParserRewind(t *testing.T) {
	input := `<a> <p> <b> .
<b> <q> <a> .
`
	parser := NewParser(input)

	first, err := parser.Next()
	require.NoError(t, err)

	_, err = parser.Next()
	require.NoError(t, err)
	_, err = parser.Next()
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, parser.Rewind())
	again, err := parser.Next()
	require.NoError(t, err)
	require.Equal(t, *first, *again)
}

func TestParserPosSize(t *testing.T) {
	input := `<a> <p> <b> .
`
	parser := NewParser(input)
	require.Equal(t, uint64(len(input)), parser.Size())
	require.Zero(t, parser.Pos())

	_, err := parser.Next()
	require.NoError(t, err)
	require.NotZero(t, parser.Pos())
}

func TestSerializerRoundTrip(t *testing.T) {
	triples := []TripleString{
		NewTripleString("<http://example.org/a>", "<http://example.org/p>", "<http://example.org/b>"),
		NewTripleString("_:b1", "<http://example.org/q>", `"lit"^^<http://www.w3.org/2001/XMLSchema#string>`),
	}

	var buf bytes.Buffer
	ser := NewSerializer(&buf)
	for _, ts := range triples {
		require.NoError(t, ser.Write(ts))
	}

	parser := NewParser(buf.String())
	for _, want := range triples {
		got, err := parser.Next()
		require.NoError(t, err)
		require.Equal(t, want, *got)
	}
	_, err := parser.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestTripleStringMatch(t *testing.T) {
	ts := NewTripleString("<a>", "<p>", "<b>")

	require.True(t, ts.Match(TripleString{}))
	require.True(t, ts.Match(NewTripleString("<a>", "", "")))
	require.True(t, ts.Match(NewTripleString("<a>", "<p>", "<b>")))
	require.False(t, ts.Match(NewTripleString("<b>", "", "")))
	require.False(t, ts.Match(NewTripleString("", "", "<a>")))
}
