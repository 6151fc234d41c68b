package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobmate/autoapply-service/internal/textnorm"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"How many years of experience do you have?", "how many years of experience do you have"},
		{"  Avez-vous déjà postulé ?  ", "avez vous deja postule"},
		{"Weiter   zum nächsten Schritt", "weiter zum nachsten schritt"},
		{"LinkedIn Profile (URL)*", "linkedin profile url"},
		{"10+ years", "10 years"},
		{"", ""},
		{"?!", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, textnorm.Normalize(c.in), "Normalize(%q)", c.in)
	}
}

func TestWords(t *testing.T) {
	w := textnorm.Words("years of experience of")
	assert.Len(t, w, 3)
	assert.Contains(t, w, "experience")
}

func TestContainsAny_WordBoundaries(t *testing.T) {
	assert.True(t, textnorm.ContainsAny("Submit application", []string{"submit application"}))
	assert.True(t, textnorm.ContainsAny("Envoyer la candidature", []string{"envoyer"}))
	assert.False(t, textnorm.ContainsAny("Know more", []string{"no"}))
	assert.False(t, textnorm.ContainsAny("anything", []string{""}))
	assert.False(t, textnorm.ContainsAny("", []string{"next"}))
}

func TestFirstMatch_ReturnsFirstInOrder(t *testing.T) {
	got, ok := textnorm.FirstMatch("Review your application then submit", []string{"submit", "review"})
	assert.True(t, ok)
	assert.Equal(t, "submit", got)
}
