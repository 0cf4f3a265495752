package services

import (
	"math"
	"sort"

	"gorm.io/gorm"

	"incident-report-system/models"
)

// EarthRadiusKm is the spherical approximation used by all distance
// math here; fine at the sub-100 km scale this service operates at.
const EarthRadiusKm = 6371.0

// DefaultOnSiteThresholdKm is how close a point must be to a known
// protected site to count as on-site.
const DefaultOnSiteThresholdKm = 30.0

// Haversine returns the great-circle distance in kilometers.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ReferencePoint is a named location in the fixed on-site set.
type ReferencePoint struct {
	Name string
	Lon  float64
	Lat  float64
}

// DefaultReferencePoints are the protected sites submissions are
// verified against.
var DefaultReferencePoints = []ReferencePoint{
	{Name: "Sundarbans National Park", Lon: 88.9497, Lat: 21.9497},
	{Name: "Sanjay Gandhi National Park", Lon: 72.9107, Lat: 19.2147},
	{Name: "Kaziranga National Park", Lon: 93.3712, Lat: 26.5775},
	{Name: "Gir Forest National Park", Lon: 70.7930, Lat: 21.1243},
	{Name: "Jim Corbett National Park", Lon: 78.9382, Lat: 29.5300},
	{Name: "Bandipur National Park", Lon: 76.6266, Lat: 11.6665},
}

// GeoService indexes report locations and answers proximity queries.
// The reports table's lat/lon columns are the underlying index; the
// bounding-box prefilter keeps Nearby off a full-table haversine scan.
type GeoService struct {
	DB          *gorm.DB
	Refs        []ReferencePoint
	ThresholdKm float64
}

func NewGeoService(db *gorm.DB) *GeoService {
	return &GeoService{
		DB:          db,
		Refs:        DefaultReferencePoints,
		ThresholdKm: DefaultOnSiteThresholdKm,
	}
}

// Upsert records the location for a report id in the index.
func (s *GeoService) Upsert(db *gorm.DB, id string, lon, lat float64) error {
	res := db.Model(&models.Report{}).Where("id = ?", id).
		Updates(map[string]interface{}{"longitude": lon, "latitude": lat})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReportWithDistance is a Nearby result row.
type ReportWithDistance struct {
	models.Report
	DistanceKm float64 `json:"distance_km"`
}

// Nearby returns reports within radiusKm of the point, closest first.
// A radius of 0 matches only exact-coincident points; no matches is an
// empty slice, not an error.
func (s *GeoService) Nearby(lon, lat, radiusKm float64) ([]ReportWithDistance, error) {
	// One degree of latitude is ~111.045 km; longitude shrinks with cos(lat).
	dLat := radiusKm / 111.045
	minLat, maxLat := lat-dLat, lat+dLat

	q := s.DB.Model(&models.Report{}).Preload("Photos").
		Where("latitude BETWEEN ? AND ?", minLat, maxLat)

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat > 1e-6 {
		dLon := radiusKm / (111.045 * cosLat)
		if dLon < 180 {
			q = q.Where("longitude BETWEEN ? AND ?", lon-dLon, lon+dLon)
		}
	}

	var reports []models.Report
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}

	out := make([]ReportWithDistance, 0, len(reports))
	for _, r := range reports {
		d := Haversine(lon, lat, r.Longitude, r.Latitude)
		if d <= radiusKm {
			out = append(out, ReportWithDistance{Report: r, DistanceKm: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

// OnSiteCheck is the result of the standalone nearest-reference lookup.
type OnSiteCheck struct {
	IsValid     bool    `json:"is_valid"`
	NearestName string  `json:"nearest_name"`
	DistanceKm  float64 `json:"distance_km"`
}

// VerifyOnSite returns the single nearest reference point and whether
// its distance falls within the configured threshold. Independent of
// the indexed report set.
func (s *GeoService) VerifyOnSite(lon, lat float64) (OnSiteCheck, error) {
	if err := models.ValidateCoordinates(lon, lat); err != nil {
		return OnSiteCheck{}, validationf("%v", err)
	}
	best := OnSiteCheck{DistanceKm: math.MaxFloat64}
	for _, ref := range s.Refs {
		d := Haversine(lon, lat, ref.Lon, ref.Lat)
		if d < best.DistanceKm {
			best.NearestName = ref.Name
			best.DistanceKm = d
		}
	}
	best.IsValid = best.DistanceKm <= s.ThresholdKm
	return best, nil
}
