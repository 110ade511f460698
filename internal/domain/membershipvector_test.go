package domain

import "testing"

func TestCommonPrefixLength(t *testing.T) {
	tests := []struct {
		name string
		a    MembershipVector
		b    MembershipVector
		want int
	}{
		{
			name: "identical vectors",
			a:    MembershipVector{0xab, 0xcd},
			b:    MembershipVector{0xab, 0xcd},
			want: 16,
		},
		{
			name: "differ at first bit",
			a:    MembershipVector{0b10000000},
			b:    MembershipVector{0b00000000},
			want: 0,
		},
		{
			name: "differ at last bit of first byte",
			a:    MembershipVector{0b11111110},
			b:    MembershipVector{0b11111111},
			want: 7,
		},
		{
			name: "differ in second byte",
			a:    MembershipVector{0xff, 0b11110000},
			b:    MembershipVector{0xff, 0b11100000},
			want: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.CommonPrefixLength(tt.b)
			if got != tt.want {
				t.Errorf("CommonPrefixLength() = %d, want %d", got, tt.want)
			}
			// must be symmetric
			if rev := tt.b.CommonPrefixLength(tt.a); rev != got {
				t.Errorf("CommonPrefixLength() not symmetric: %d != %d", got, rev)
			}
		})
	}
}
