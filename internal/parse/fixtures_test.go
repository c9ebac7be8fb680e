package parse

const ffTableHTML = `<html><body>
<table class="calendar__table">
<tr class="calendar__row calendar__row--day-breaker"><td colspan="10">Mon Oct 13</td></tr>
<tr class="calendar__row" data-event-id="140001" data-timestamp="1760358600">
  <td class="calendar__cell calendar__date">Mon <span>Oct 13</span></td>
  <td class="calendar__cell calendar__time">12:30pm</td>
  <td class="calendar__cell calendar__currency">USD</td>
  <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-red" title="High Impact Expected"></span></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">Core CPI m/m</span></td>
  <td class="calendar__cell calendar__detail"><a href="/calendar?day=oct13.2025#detail=140001">detail</a></td>
  <td class="calendar__cell calendar__actual"><span class="better">0.4%</span></td>
  <td class="calendar__cell calendar__forecast"><span>0.3%</span></td>
  <td class="calendar__cell calendar__previous"><span>0.2%</span></td>
</tr>
<tr class="calendar__row" data-event-id="140002">
  <td class="calendar__cell calendar__date"></td>
  <td class="calendar__cell calendar__time">2:00pm</td>
  <td class="calendar__cell calendar__currency">EUR</td>
  <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-ora"></span></td>
  <td class="calendar__cell calendar__event">German ZEW Economic Sentiment (</td>
  <td class="calendar__cell">Oct)</td>
  <td class="calendar__cell calendar__actual" data-actual="-1.2"><span class="worse">-1.2</span></td>
  <td class="calendar__cell calendar__forecast">3.5</td>
  <td class="calendar__cell calendar__previous">37.3</td>
</tr>
<tr class="calendar__row">
  <td class="calendar__cell calendar__date"></td>
  <td class="calendar__cell calendar__time">All Day</td>
  <td class="calendar__cell calendar__currency">JPY</td>
  <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-gra"></span></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">Bank Holiday</span></td>
  <td class="calendar__cell calendar__actual"></td>
  <td class="calendar__cell calendar__forecast"></td>
  <td class="calendar__cell calendar__previous"></td>
</tr>
<tr class="calendar__row">
  <td class="calendar__cell calendar__date"></td>
  <td class="calendar__cell calendar__time"></td>
  <td class="calendar__cell calendar__currency">XAU</td>
  <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-red"></span></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">Gold Fixing</span></td>
  <td class="calendar__cell calendar__actual">1.0</td>
</tr>
<tr class="calendar__row">
  <td class="calendar__cell calendar__date"></td>
  <td class="calendar__cell calendar__time"></td>
  <td class="calendar__cell calendar__currency">GBP</td>
  <td class="calendar__cell calendar__impact"></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">Sponsored</span></td>
  <td class="calendar__cell calendar__actual">Actual</td>
  <td class="calendar__cell calendar__forecast">Forecast</td>
  <td class="calendar__cell calendar__previous">Previous</td>
</tr>
<tr class="calendar__row calendar__row--day-breaker"><td colspan="10">Tue Oct 14</td></tr>
<tr class="calendar__row" data-event-id="140003">
  <td class="calendar__cell calendar__date">Tue <span>Oct 14</span></td>
  <td class="calendar__cell calendar__time">8:30am</td>
  <td class="calendar__cell calendar__currency">CAD</td>
  <td class="calendar__cell calendar__impact"></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">Housing Starts</span></td>
  <td class="calendar__cell calendar__actual"></td>
  <td class="calendar__cell calendar__forecast">255K</td>
  <td class="calendar__cell calendar__previous">1,245.5K</td>
</tr>
</table>
</body></html>`

const ffInlineHTML = `<html><body>
<div class="calendar-inline">
  <div class="calendar-inline__day" data-date="2025-10-16">
    <div class="calendar-inline__item" data-currency="USD" data-impact="high" data-forecast="223K" data-previous="219K">
      <span class="calendar-inline__time">8:30am</span>
      <span class="calendar-inline__currency">USD</span>
      <span class="calendar-inline__impact impact--high"></span>
      <span class="calendar-inline__title">Initial Jobless Claims Oct11</span>
      <span class="calendar-inline__actual better" data-value="215K">215K</span>
    </div>
    <div class="calendar-inline__item">
      <span class="calendar-inline__currency">AUD</span>
      <span class="calendar-inline__impact"></span>
      <span class="calendar-inline__title">Newsletter signup</span>
    </div>
  </div>
</div>
</body></html>`

const invTableHTML = `<html><body>
<table id="economicCalendarData" class="genTbl closedTbl ecoCalTbl persistArea js-economic-table">
<tbody>
<tr><td colspan="9" class="theDay" id="theDay1760313600">Monday, October 13, 2025</td></tr>
<tr id="eventRowId_512345" class="js-event-item" event_attr_ID="733" data-event-datetime="2025/10/13 12:30:00">
  <td class="first left time js-time">12:30</td>
  <td class="left flagCur noWrap"><span title="United States" class="ceFlags United_States"></span> USD</td>
  <td class="left textNum sentiment noWrap" data-img_key="bull3" title="High Volatility Expected"><i class="grayFullBullishIcon"></i><i class="grayFullBullishIcon"></i><i class="grayFullBullishIcon"></i></td>
  <td class="left event"><a href="/economic-calendar/core-cpi-56">Core CPI (MoM)  (Sep)</a></td>
  <td class="bold act redFont event-512345-actual" id="eventActual_512345" title="Worse Than Expected">0.2%</td>
  <td class="fore event-512345-forecast" id="eventForecast_512345">0.3%</td>
  <td class="prev blackFont event-512345-previous" id="eventPrevious_512345"><span title="">0.4%</span></td>
</tr>
<tr id="eventRowId_512346" class="js-event-item" event_attr_ID="1057">
  <td class="first left time js-time">14:00</td>
  <td class="left flagCur noWrap"><span title="Canada" class="ceFlags Canada"></span> CAD</td>
  <td class="left textNum sentiment noWrap"><i class="grayFullBullishIcon"></i><i class="grayFullBullishIcon"></i><i class="grayEmptyBullishIcon"></i></td>
  <td class="left event">Ivey PMI (</td>
  <td class="left">s.a) (Sep)</td>
  <td class="bold act event-512346-actual" title="Better Than Expected">55.1</td>
  <td class="fore">53.0</td>
  <td class="prev">50.1</td>
</tr>
<tr id="eventRowId_512347" class="js-event-item">
  <td class="first left time js-time">All Day</td>
  <td class="left flagCur noWrap"><span class="ceFlags Japan"></span> JPY</td>
  <td class="left textNum sentiment noWrap"><span class="bold">Holiday</span></td>
  <td class="left event">Japan - Sports Day</td>
  <td class="act"></td><td class="fore"></td><td class="prev"></td>
</tr>
</tbody>
</table>
</body></html>`

const invInlineHTML = `<html><body>
<div class="calendar">
  <div data-test="economic-calendar-row" data-event-id="900001" data-datetime="2025-10-15T09:00:00Z">
    <div data-test="row-time">09:00</div>
    <div data-test="row-currency">GBP</div>
    <div data-test="row-importance" data-importance="2"></div>
    <div data-test="row-event-name">CPI y/y (Sep)</div>
    <div data-test="row-actual" class="text-positive" data-value="3.6%">3.6%</div>
    <div data-test="row-forecast">3.8%</div>
    <div data-test="row-previous">3.8%</div>
    <a data-test="row-event-link" href="/economic-calendar/cpi-67"></a>
  </div>
  <div data-test="economic-calendar-row" data-date="15.10.2025">
    <div data-test="row-time">10:00</div>
    <div data-test="row-currency">NZD</div>
    <div data-test="row-importance"></div>
    <div data-test="row-event-name">GDT Price Index</div>
    <div data-test="row-actual">n/a</div>
    <div data-test="row-forecast"></div>
    <div data-test="row-previous">-1.5%</div>
  </div>
</div>
</body></html>`
