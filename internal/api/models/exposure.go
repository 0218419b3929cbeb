package models

// MaxExposurePoints bounds one aggregation request.
const MaxExposurePoints = 500

// ExposureRequest is the body of POST /v1/exposure.
type ExposureRequest struct {
	Points []Point `json:"points" validate:"required,min=1,max=500,dive"`
}

// ExposureReading is a positional reading; both fields null means no data.
type ExposureReading struct {
	PM25 *float64 `json:"pm2_5"`
	NO2  *float64 `json:"no2"`
}

// ExposureResponse carries one reading per requested point, in order, and
// averages over the non-null values.
type ExposureResponse struct {
	Points  []ExposureReading `json:"points"`
	AvgPM25 *float64          `json:"avg_pm2_5"`
	AvgNO2  *float64          `json:"avg_no2"`
}
