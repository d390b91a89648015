package constants

// DefaultWebURL is the TMDB website the uploader drives.
const DefaultWebURL = "https://www.themoviedb.org"

// DefaultAPIURL is the standard base URL for the TMDB REST API (v3).
const DefaultAPIURL = "https://api.themoviedb.org/3"

// DefaultLanguage is the translation locale written to TMDB.
const DefaultLanguage = "zh-HK"

// DefaultWorkbookName is the spreadsheet shared by extraction, reconciliation
// and upload.
const DefaultWorkbookName = "video_detail.xlsx"

// UserAgent identifies API requests.
const UserAgent = "tmdbimporter v0.1"
