package snapshot

import (
	"testing"

	"github.com/nholik/save-snapper/internal/savefile"
)

func TestName(t *testing.T) {
	cases := []struct {
		farm, uid string
		date      savefile.GameDate
		want      string
	}{
		{
			farm: "Riverside",
			uid:  "123456789",
			date: savefile.GameDate{Year: "2", Season: "summer", Day: "14"},
			want: "Riverside_123456789_Y2_summer_14",
		},
		{
			farm: "Hill Top",
			uid:  "42",
			date: savefile.GameDate{Year: "10", Season: "winter", Day: "28"},
			want: "Hill Top_42_Y10_winter_28",
		},
	}

	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			if got := Name(tc.farm, tc.uid, tc.date); got != tc.want {
				t.Fatalf("Name() = %q, want %q", got, tc.want)
			}
		})
	}
}
