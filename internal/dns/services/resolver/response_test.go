package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/zonefwd/internal/dns/domain"
)

func TestEncodeResponse_RCodeRange(t *testing.T) {
	q := domain.Query{ID: 7, Labels: []string{"example", "com"}, Type: domain.RRTypeA, Class: domain.RRClassIN}

	tests := []struct {
		name    string
		rcode   domain.RCode
		wantErr bool
	}{
		{name: "noerror", rcode: domain.RCodeNoError},
		{name: "largest four-bit value", rcode: 15},
		{name: "extended rcode", rcode: 16, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := encodeResponse(q, domain.Flags{QR: true, RCode: tt.rcode}, true, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "does not fit the header")
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(out), domain.HeaderLen)
			assert.Equal(t, byte(tt.rcode), out[3]&0x0F)
		})
	}
}
