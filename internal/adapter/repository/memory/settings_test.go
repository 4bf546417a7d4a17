package memory

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroraviz/aurora/internal/domain"
)

// Helper to create a test settings repository
func newTestSettingsRepository() *SettingsRepository {
	app := test.NewApp()
	return NewSettingsRepository(app.Preferences())
}

func TestSettingsRepository_SaveAndLoad(t *testing.T) {
	repo := newTestSettingsRepository()

	saved := domain.VisualSettings{
		PaletteName:    "ember",
		VariantName:    "stellar",
		RotationSpeed:  0.4,
		Reactivity:     1.6,
		BloomStrength:  0.2,
		StarCount:      400,
		MeshResolution: 2,
		GyroEnabled:    true,
		Volume:         0.45,
	}
	require.NoError(t, repo.Save(saved))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestSettingsRepository_Load_Defaults(t *testing.T) {
	repo := newTestSettingsRepository()

	loaded, err := repo.Load()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultVisualSettings(), loaded)
}

func TestSettingsRepository_Load_ClampsResolution(t *testing.T) {
	repo := newTestSettingsRepository()

	bad := domain.DefaultVisualSettings()
	bad.MeshResolution = 99
	require.NoError(t, repo.Save(bad))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.MaxMeshResolution, loaded.MeshResolution)
}

func TestSettingsRepository_Clear_RestoresDefaults(t *testing.T) {
	repo := newTestSettingsRepository()

	custom := domain.DefaultVisualSettings()
	custom.PaletteName = "mono"
	custom.StarCount = 50
	require.NoError(t, repo.Save(custom))
	require.NoError(t, repo.Clear())

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultVisualSettings(), loaded)
}

func TestSettingsRepository_PartialSaveLoadsRemainingDefaults(t *testing.T) {
	app := test.NewApp()
	prefs := app.Preferences()
	prefs.SetString(keyPalette, "violet")

	repo := NewSettingsRepository(prefs)
	loaded, err := repo.Load()

	require.NoError(t, err)
	assert.Equal(t, "violet", loaded.PaletteName)
	def := domain.DefaultVisualSettings()
	assert.Equal(t, def.RotationSpeed, loaded.RotationSpeed)
	assert.Equal(t, def.StarCount, loaded.StarCount)
}
