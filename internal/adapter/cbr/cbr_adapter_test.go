package cbr

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const dailyXML = `<?xml version="1.0" encoding="windows-1251"?>
<ValCurs Date="02.08.2025" name="Foreign Currency Market">
	<Valute ID="R01235">
		<NumCode>840</NumCode>
		<CharCode>USD</CharCode>
		<Nominal>1</Nominal>
		<Name>Доллар США</Name>
		<Value>80,0000</Value>
		<VunitRate>80,0000</VunitRate>
	</Valute>
	<Valute ID="R01115">
		<NumCode>986</NumCode>
		<CharCode>BRL</CharCode>
		<Nominal>10</Nominal>
		<Name>Бразильский реал</Name>
		<Value>160,0000</Value>
		<VunitRate>16,0000</VunitRate>
	</Valute>
</ValCurs>`

func encode1251(t *testing.T, s string) []byte {
	t.Helper()
	out, err := charmap.Windows1251.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger, _ := test.NewNullLogger()
	c := NewClient(srv.URL, 2*time.Second, logger)
	c.now = func() time.Time { return time.Date(2025, 8, 2, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestValute_GetValue_CommaReplacement(t *testing.T) {
	v := Valute{Value: "1234,56"}
	value, err := v.GetValue()
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("1234.56")))
}

func TestValute_GetValue_Invalid(t *testing.T) {
	v := Valute{Value: "invalid"}
	_, err := v.GetValue()
	assert.Error(t, err)
}

func TestValute_UnitRate_DividesByNominal(t *testing.T) {
	v := Valute{CharCode: "JPY", Nominal: 100, Value: "55,5"}
	rate, err := v.UnitRate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.555")))

	_, err = Valute{CharCode: "JPY", Nominal: 0, Value: "1"}.UnitRate()
	assert.ErrorContains(t, err, "invalid nominal")
}

func TestValCurs_XMLMarshal(t *testing.T) {
	vc := ValCurs{
		Date: "02.01.2006",
		Name: "Foreign Currency Market",
		Valutes: []Valute{
			{ID: "R01235", NumCode: "840", CharCode: "USD", Nominal: 1, Name: "US Dollar", Value: "90,1234", VunitRate: "90,1234"},
		},
	}

	data, err := xml.Marshal(vc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<ValCurs Date="02.01.2006" name="Foreign Currency Market">`)
	assert.Contains(t, string(data), `<CharCode>USD</CharCode>`)
	assert.Contains(t, string(data), `<Value>90,1234</Value>`)
}

func TestFetchRates_DecodesWindows1251(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write(encode1251(t, dailyXML))
	})

	vc, err := client.FetchRates(context.Background(), "02/08/2025")
	require.NoError(t, err)
	assert.Equal(t, "date_req=02/08/2025", gotQuery)
	assert.Equal(t, "02.08.2025", vc.Date)
	require.Len(t, vc.Valutes, 2)
	assert.Equal(t, "Доллар США", vc.Valutes[0].Name)
	assert.Equal(t, 10, vc.Valutes[1].Nominal)
}

func TestFetchRates_BadStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchRates(context.Background(), "02/08/2025")
	assert.ErrorContains(t, err, "unexpected status 503")
}

func TestFetchRates_EmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.FetchRates(context.Background(), "02/08/2025")
	assert.ErrorContains(t, err, "empty response body")
}

func TestFetchRates_UnsupportedCharset(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="koi8-r"?><ValCurs Date="02.08.2025"></ValCurs>`))
	})

	_, err := client.FetchRates(context.Background(), "02/08/2025")
	assert.ErrorContains(t, err, "parse XML")
}

func TestFetchRates_OversizedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="windows-1251"?><ValCurs Date="02.08.2025">`))
		w.Write([]byte(strings.Repeat(" ", maxBodyBytes)))
		w.Write([]byte(`</ValCurs>`))
	})

	_, err := client.FetchRates(context.Background(), "02/08/2025")
	assert.ErrorContains(t, err, "response body exceeds")
}

func TestNewClient_UsesEnvironmentProxy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewClient("http://example.test", time.Second, logger)

	transport, ok := c.httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, transport.Proxy)
}

func TestPairRate_CrossThroughRub(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "02/08/2025", r.URL.Query().Get("date_req"))
		w.Write(encode1251(t, dailyXML))
	})

	rate, err := client.PairRate(context.Background(), "USD", "BRL")
	require.NoError(t, err)
	// 80 RUB per USD / 16 RUB per BRL
	assert.True(t, rate.Equal(decimal.NewFromInt(5)), rate.String())

	rate, err = client.PairRate(context.Background(), "BRL", "RUB")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(16)), rate.String())

	rate, err = client.PairRate(context.Background(), "RUB", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.0125")), rate.String())
}

func TestPairRate_UnknownCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(encode1251(t, dailyXML))
	})

	_, err := client.PairRate(context.Background(), "USD", "XAU")
	assert.ErrorContains(t, err, "currency XAU not quoted by CBR")
}
