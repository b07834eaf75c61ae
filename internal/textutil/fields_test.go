package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelValues_Table(t *testing.T) {
	body := `<html><body><table>
		<tr><td>Comercio:</td><td>SUPERMAXI  EL BATAN</td></tr>
		<tr><td>Monto</td><td>$ 35,93</td><td>Tarjeta</td><td>554574XXXXXXX439</td></tr>
		<tr><td><table><tr><td>Fecha</td><td>2026-01-30 a las 10:03</td></tr></table></td></tr>
	</table></body></html>`

	f := LabelValues(body)
	assert.Equal(t, "SUPERMAXI EL BATAN", f.Get("comercio"))
	assert.Equal(t, "$ 35,93", f.Get("Monto"))
	assert.Equal(t, "554574XXXXXXX439", f.Get("tarjeta"))
	assert.Equal(t, "2026-01-30 a las 10:03", f.Get("fecha"))
}

func TestLabelValues_Headings(t *testing.T) {
	body := `<div><h4>Lugar de consumo</h4><p>KFC MALL DEL SOL</p>
		<h4>Valor</h4><p>USD 8,50</p></div>`

	f := LabelValues(body)
	assert.Equal(t, "KFC MALL DEL SOL", f.Get("lugar de consumo"))
	assert.Equal(t, "USD 8,50", f.Get("valor"))
}

func TestLabelValues_TextLines(t *testing.T) {
	body := "Valor: USD 1.54\nEstablecimiento: DIDI RIDES EC KS\nTarjeta de Crédito: XXX3733\nFecha y Hora: 30/Enero/2026 10:03"

	f := LabelValues(body)
	assert.Equal(t, "USD 1.54", f.Get("valor"))
	assert.Equal(t, "XXX3733", f.Get("tarjeta"))
	assert.Equal(t, "tarjeta de credito", f.Key("tarjeta"))
	assert.Equal(t, "30/Enero/2026 10:03", f.Get("Fecha y hora"))
	assert.Empty(t, f.Get("beneficiario"))
}

func TestHTMLToText(t *testing.T) {
	body := `<html><head><style>p{color:red}</style></head><body>
		<p>Hola   Juan</p><p>Se realizó un consumo<br>por USD 13,05</p>
		<table><tr><td>Valor</td><td>13,05</td></tr></table></body></html>`

	text := HTMLToText(body)
	require.NotContains(t, text, "color")
	assert.Equal(t, "Hola Juan\nSe realizó un consumo\npor USD 13,05\nValor 13,05", text)
}
