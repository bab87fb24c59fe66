package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleSplitter_Split(t *testing.T) {
	splitter := NewSentenceSplitter()

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name: "simple sentences",
			text: "Remove the wheel. Remove the caliper. Inspect the disc.",
			expected: []string{
				"Remove the wheel.",
				"Remove the caliper.",
				"Inspect the disc.",
			},
		},
		{
			name: "mixed punctuation",
			text: "Is the boot torn? Replace it! Then refit the clamp.",
			expected: []string{
				"Is the boot torn?",
				"Replace it!",
				"Then refit the clamp.",
			},
		},
		{
			name: "abbreviations",
			text: "See Fig. 3 for the bolt location. Torque to approx. 35 Nm. Refer to No. 2 bracket.",
			expected: []string{
				"See Fig. 3 for the bolt location.",
				"Torque to approx. 35 Nm.",
				"Refer to No. 2 bracket.",
			},
		},
		{
			name: "decimal numbers",
			text: "Runout limit is 0.05 mm. Thickness is 25.5 mm minimum.",
			expected: []string{
				"Runout limit is 0.05 mm.",
				"Thickness is 25.5 mm minimum.",
			},
		},
		{
			name: "lower case continuation",
			text: "Tighten to spec. then check again.",
			expected: []string{
				"Tighten to spec. then check again.",
			},
		},
		{
			name: "closing quotes and brackets",
			text: `Label the part "TOP." (Do not reuse the nut.) Install the new nut.`,
			expected: []string{
				`Label the part "TOP."`,
				`(Do not reuse the nut.)`,
				`Install the new nut.`,
			},
		},
		{
			name: "collapsed boundaries",
			text: "Tighten the nut to 115 Nm.Remove the bolt.Install the caliper. Check the torque.",
			expected: []string{
				"Tighten the nut to 115 Nm.",
				"Remove the bolt.",
				"Install the caliper.",
				"Check the torque.",
			},
		},
		{
			name: "collapsed boundary after number and bracket",
			text: "Use torque step 2.Repeat for the (left side).Then lower the vehicle.",
			expected: []string{
				"Use torque step 2.",
				"Repeat for the (left side).",
				"Then lower the vehicle.",
			},
		},
		{
			name: "collapsed abbreviations hold together",
			text: "Built to U.S.Army rules. Check e.g.Bolt A first.",
			expected: []string{
				"Built to U.S.Army rules.",
				"Check e.g.Bolt A first.",
			},
		},
		{
			name:     "no terminal punctuation",
			text:     "Tie-rod end nut 115 Nm",
			expected: []string{"Tie-rod end nut 115 Nm"},
		},
		{
			name:     "whitespace only",
			text:     "   ",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitter.Split(tt.text))
		})
	}
}
