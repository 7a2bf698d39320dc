package fuse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFuse() *ProximityFuse {
	return NewProximityFuse(20, 10, 5)
}

func TestFuseArming(t *testing.T) {
	t.Parallel()

	t.Run("unarmed below arming distance", func(t *testing.T) {
		t.Parallel()
		f := newTestFuse()
		// Inside the detonation radius but not yet armed.
		res := f.Evaluate(5, 3, 50)
		assert.False(t, res.Detonate)
		assert.Equal(t, 0.0, res.Quality)
		assert.Equal(t, FuseUnarmed, f.State())
	})

	t.Run("arms once distance traveled passes threshold", func(t *testing.T) {
		t.Parallel()
		f := newTestFuse()
		res := f.Evaluate(25, 100, 50)
		assert.False(t, res.Detonate) // Armed but out of radius
		assert.Equal(t, FuseArmed, f.State())
	})
}

func TestFuseDetonation(t *testing.T) {
	t.Parallel()

	t.Run("detonates within radius while closing", func(t *testing.T) {
		t.Parallel()
		f := newTestFuse()
		res := f.Evaluate(50, 8, 120)
		require.True(t, res.Detonate)
		assert.Greater(t, res.Quality, 0.5)
		assert.Equal(t, 8.0, res.Distance)
		assert.Equal(t, FuseDetonated, f.State())
	})

	t.Run("detonates on fly-by inside radius", func(t *testing.T) {
		t.Parallel()
		f := newTestFuse()
		// Receding (closing rate <= 0) but still within radius.
		res := f.Evaluate(50, 9.5, -10)
		assert.True(t, res.Detonate)
		assert.Greater(t, res.Quality, 0.0)
	})

	t.Run("holds outside radius", func(t *testing.T) {
		t.Parallel()
		f := newTestFuse()
		res := f.Evaluate(50, 10.5, 30)
		assert.False(t, res.Detonate)
		assert.Equal(t, FuseArmed, f.State())
	})

	t.Run("detonated is terminal", func(t *testing.T) {
		t.Parallel()
		f := newTestFuse()
		require.True(t, f.Evaluate(50, 2, 10).Detonate)
		// Further evaluations never fire again.
		res := f.Evaluate(60, 1, 10)
		assert.False(t, res.Detonate)
		assert.Equal(t, FuseDetonated, f.State())
	})
}

func TestDetonationQuality(t *testing.T) {
	t.Parallel()

	f := newTestFuse() // optimal 5, detonation 10

	t.Run("point blank", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 1.0, f.DetonationQuality(0), 1e-9)
	})

	t.Run("at optimal radius", func(t *testing.T) {
		t.Parallel()
		q := f.DetonationQuality(5)
		assert.GreaterOrEqual(t, q, 0.9)
		assert.LessOrEqual(t, q, 1.0)
	})

	t.Run("at detonation radius", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 0.5, f.DetonationQuality(10), 1e-9)
	})

	t.Run("beyond detonation radius", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, f.DetonationQuality(10.01))
	})

	t.Run("monotone non-increasing", func(t *testing.T) {
		t.Parallel()
		prev := f.DetonationQuality(0)
		for d := 0.25; d <= 12; d += 0.25 {
			q := f.DetonationQuality(d)
			assert.LessOrEqual(t, q, prev, "d=%v", d)
			prev = q
		}
	})
}

func TestKillProbability(t *testing.T) {
	t.Parallel()

	t.Run("point blank medium", func(t *testing.T) {
		t.Parallel()
		assert.GreaterOrEqual(t, KillProbability(0, WarheadMedium), 0.99)
	})

	t.Run("out of range medium", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, KillProbability(20, WarheadMedium))
	})

	t.Run("class monotonicity at fixed distance", func(t *testing.T) {
		t.Parallel()
		for d := 0.0; d <= 26; d += 0.5 {
			small := KillProbability(d, WarheadSmall)
			medium := KillProbability(d, WarheadMedium)
			large := KillProbability(d, WarheadLarge)
			assert.LessOrEqual(t, small, medium, "d=%v", d)
			assert.LessOrEqual(t, medium, large, "d=%v", d)
		}
	})

	t.Run("distance monotonicity within class", func(t *testing.T) {
		t.Parallel()
		for _, class := range []WarheadClass{WarheadSmall, WarheadMedium, WarheadLarge} {
			prev := KillProbability(0, class)
			for d := 0.5; d <= 30; d += 0.5 {
				p := KillProbability(d, class)
				assert.LessOrEqual(t, p, prev, "class=%s d=%v", class, d)
				prev = p
			}
		}
	})

	t.Run("unknown class behaves as small", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, KillProbability(4, WarheadSmall), KillProbability(4, WarheadClass("huge")))
	})

	t.Run("negative distance", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, KillProbability(-1, WarheadMedium))
	})
}
