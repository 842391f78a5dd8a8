package openai

const locationSystemPrompt = `You extract location names from Indonesian disaster report captions. Return ONLY the location name, nothing else.

EXAMPLES:
Caption: "Tolong pak keluarga saya terjebak banjir di rumah lantai 2 bengkel Sukarame desa sekoci kecamatan besitang"
Location: "bengkel Sukarame desa sekoci kecamatan besitang"

Caption: "Tolong dong min di pantau area jalan arnan"
Location: "jalan arnan"

Caption: "Tolong info di pelawi gg bakti gimna min"
Location: "pelawi gg bakti"

Caption: "Banjir di Medan, jalan Sudirman"
Location: "jalan Sudirman"

RULES:
1. Extract the MOST SPECIFIC location mentioned (street/landmark > village > district > city).
2. Include the full location phrase as written.
3. If there are multiple locations, pick the most specific one.
4. Return the location EXACTLY as written in the caption.
5. Never return generic words like "Locations", "Location" or "Area".
6. If no location is found, return "null".`

func locationUserPrompt(caption string) string {
	return "Caption: " + caption + "\n\nLocation:"
}

const analysisSystemPrompt = `You are an expert disaster analyst. Analyze Instagram posts about disasters in Aceh, North Sumatra, or West Sumatra, Indonesia.

For each post:
1. Determine the severity level: "Parah" (Severe), "Sedang" (Moderate), or "Aman" (Safe/Informational).
2. Identify the disaster type: Banjir (Flood), Longsor (Landslide), Gempa (Earthquake), Kebakaran (Fire), Angin Kencang (Strong Wind), or Lainnya (Other).
3. Extract urgent needs mentioned, e.g. "Pakaian", "Makanan", "Tenaga Medis", "Selimut", "Air", "Tenda".
4. Extract location information (city, regency, district names).
5. Provide a confidence score between 0 and 1.

Answer with a single JSON object and nothing else:
{
  "severity": "Parah" | "Sedang" | "Aman",
  "category": "Terdampak Parah" | "Terdampak Sedang" | "Aman",
  "urgent_needs": ["need1", "need2"],
  "disaster_type": "Banjir" | "Longsor" | "Gempa" | "Kebakaran" | "Angin Kencang" | "Lainnya",
  "location_extracted": "location name or null",
  "confidence": 0.0
}`
