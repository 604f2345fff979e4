package domain

// Progress messages reported by the Veo provider, in the order it emits them.
const (
	ProgressInitializing = "Inisialisasi..."
	ProgressSubmitting   = "Mengirim permintaan ke model VEO..."
	ProgressStarted      = "Pembuatan video dimulai. Ini mungkin memakan waktu beberapa menit..."
	ProgressWarmingUp    = "Memanaskan kanvas digital..."
	ProgressTeaching     = "Mengajari piksel untuk menari..."
	ProgressSplines      = "Merangkai splines..."
	ProgressSequencing   = "Menyusun urutan sinematik..."
	ProgressPolishing    = "Memoles bingkai akhir..."
	ProgressAlmostDone   = "Hampir selesai, keajaiban sedang terjadi..."
	ProgressFinalizing   = "Menyelesaikan dan mengambil video..."
	ProgressThumbnail    = "Membuat thumbnail..."
)

// PollMessages rotate while the provider waits on the remote operation.
var PollMessages = []string{
	ProgressWarmingUp,
	ProgressTeaching,
	ProgressSplines,
	ProgressSequencing,
	ProgressPolishing,
	ProgressAlmostDone,
}

var progressTable = map[string]int{
	ProgressInitializing: 2,
	ProgressSubmitting:   5,
	ProgressStarted:      10,
	ProgressWarmingUp:    20,
	ProgressTeaching:     35,
	ProgressSplines:      50,
	ProgressSequencing:   65,
	ProgressPolishing:    80,
	ProgressAlmostDone:   90,
	ProgressFinalizing:   95,
	ProgressThumbnail:    98,
}

// ProgressPercentage maps a job's status and latest progress message to a
// displayable percentage in 0..100. Messages the table does not know map to 0.
func ProgressPercentage(status JobStatus, message string) int {
	switch status {
	case JobStatusCompleted:
		return 100
	case JobStatusGenerating:
		return progressTable[message]
	default:
		return 0
	}
}
