// Package vec содержит операции над векторами-эмбеддингами.
// Все функции рассчитаны на L2-нормализованные векторы, для которых
// скалярное произведение совпадает с косинусной близостью, а
// квадрат евклидова расстояния равен 2 - 2*cos(θ).
package vec

import "math"

// L2Squared возвращает квадрат евклидова расстояния между векторами.
// Корень не извлекается: для ранжирования достаточно монотонной величины.
func L2Squared(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Norm возвращает L2-норму вектора.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize нормализует вектор к единичной длине in-place.
// Возвращает false для нулевого вектора: такой вектор нормализовать нельзя.
func Normalize(v []float32) bool {
	n := Norm(v)
	if n == 0 {
		return false
	}
	inv := float32(1 / n)
	for i := range v {
		v[i] *= inv
	}
	return true
}

// IsNormalized проверяет, что норма вектора равна единице с точностью eps.
func IsNormalized(v []float32, eps float64) bool {
	return math.Abs(Norm(v)-1) <= eps
}
